package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerly/ledgerly/internal/audit"
	"github.com/ledgerly/ledgerly/internal/platform/httpx"
	"github.com/ledgerly/ledgerly/internal/shared"
)

const (
	dateLayout        = "2006-01-02"
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultExportSpan = 7 * 24 * time.Hour
	maxExportSpan     = 90 * 24 * time.Hour
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, result)
}

// handleExport returns every matching row. The window defaults to the last
// seven days and may not exceed ninety.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if filters.To.IsZero() {
		filters.To = h.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	if filters.From.IsZero() {
		filters.From = filters.To.Add(-defaultExportSpan)
	}
	if filters.To.Sub(filters.From) > maxExportSpan {
		httpx.RespondError(w, r, h.logger, shared.FieldError("from", "export range may not exceed 90 days"))
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.json"`)
	httpx.OK(w, rows)
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		Actor:    strings.TrimSpace(q.Get("actor")),
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     1,
		PageSize: defaultPageSize,
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return filters, shared.FieldError("from", "must be a date in YYYY-MM-DD form")
		}
		filters.From = from
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return filters, shared.FieldError("to", "must be a date in YYYY-MM-DD form")
		}
		// inclusive day
		filters.To = to.Add(24 * time.Hour)
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return filters, shared.FieldError("page", "must be a positive integer")
		}
		filters.Page = parsed
	}
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return filters, shared.FieldError("page_size", "must be a positive integer")
		}
		filters.PageSize = min(parsed, maxPageSize)
	}
	return filters, nil
}
