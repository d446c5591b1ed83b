package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerly/ledgerly/internal/platform/httpx"
)

// IdempotencyHeader carries the client's request key for movement posting.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the stock ledger over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the ledger endpoints under the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Post("/movements", h.recordMovement)
		r.Post("/movements/batch", h.recordBatch)
		r.Get("/products/{id}/history", h.history)
		r.Get("/products/{id}/verify", h.verify)
		r.Get("/alerts", h.alerts)
	})
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var input MovementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	movement, err := h.service.RecordMovement(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.Created(w, movement)
}

type batchRequest struct {
	Atomic    bool            `json:"atomic"`
	Movements []MovementInput `json:"movements"`
}

func (h *Handler) recordBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	results, err := h.service.RecordBatch(r.Context(), req.Movements, BatchOptions{Atomic: req.Atomic})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, results)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, movements)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, report)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, alerts)
}
