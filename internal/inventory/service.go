package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	mdshared "github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/shared"
)

const idempotencyModule = "stock"

// AuditPort records ledger activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts movement outcomes.
type MetricsPort interface {
	ObserveMovement(kind string, err error)
}

// ServiceConfig tunes ledger behaviour.
type ServiceConfig struct {
	AllowNegativeStock bool
	BatchConcurrency   int
}

// Service is the only writer of stock quantities.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	cache       *AlertCache
	locks       *shared.KeyedMutex
	cfg         ServiceConfig
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceOption customises the service.
type ServiceOption func(*Service)

// WithAudit sets the audit sink.
func WithAudit(a AuditPort) ServiceOption { return func(s *Service) { s.audit = a } }

// WithIdempotency sets the idempotency key store.
func WithIdempotency(i IdempotencyPort) ServiceOption {
	return func(s *Service) { s.idempotency = i }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m MetricsPort) ServiceOption { return func(s *Service) { s.metrics = m } }

// WithAlertCache sets the low-stock cache.
func WithAlertCache(c *AlertCache) ServiceOption { return func(s *Service) { s.cache = c } }

// WithLocks shares a lock table with other writers in the process.
func WithLocks(l *shared.KeyedMutex) ServiceOption { return func(s *Service) { s.locks = l } }

// NewService wires the ledger service.
func NewService(repo RepositoryPort, cfg ServiceConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	s := &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		locks:  shared.NewKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordMovement applies one stock change atomically. The product row and the new
// movement are written in the same transaction or not at all.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	input = normalizeInput(input)
	if err := validateInput(input); err != nil {
		s.observe(input.Kind, err)
		return Movement{}, err
	}

	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, idempotencyModule); err != nil {
			s.observe(input.Kind, err)
			return Movement{}, err
		}
	}

	movement, err := s.record(ctx, input)
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil {
			if derr := s.idempotency.Delete(context.WithoutCancel(ctx), input.IdempotencyKey); derr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", input.IdempotencyKey), slog.Any("error", derr))
			}
		}
		return Movement{}, err
	}
	return movement, nil
}

func (s *Service) record(ctx context.Context, input MovementInput) (Movement, error) {
	unlock, err := s.locks.Lock(ctx, shared.StockLockKey(input.ProductID))
	if err != nil {
		s.observe(input.Kind, err)
		return Movement{}, err
	}
	defer unlock()

	var movement Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := s.ApplyTx(ctx, tx, input)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	s.observe(input.Kind, err)
	if err != nil {
		return Movement{}, err
	}
	s.afterCommit(ctx, movement)
	return movement, nil
}

// ApplyTx posts a movement inside a transaction owned by the caller. The caller must
// hold the product's lock (see LockProducts) and commit or roll back the transaction.
func (s *Service) ApplyTx(ctx context.Context, tx TxRepository, input MovementInput) (Movement, error) {
	input = normalizeInput(input)
	if err := validateInput(input); err != nil {
		return Movement{}, err
	}
	state, err := tx.LockProduct(ctx, input.ProductID)
	if err != nil {
		return Movement{}, err
	}
	if state.Deleted {
		return Movement{}, shared.NewNotFoundError("product", input.ProductID)
	}

	after := state.StockQty + input.Quantity
	if after < 0 && !s.cfg.AllowNegativeStock {
		return Movement{}, &shared.ValidationError{
			Message: fmt.Sprintf("quantity: stock of %s would drop to %d", state.SKU, after),
			Fields:  map[string]string{"quantity": "would make stock negative"},
			Err:     ErrNegativeStock,
		}
	}

	identity := shared.IdentityFromContext(ctx)
	m := Movement{
		ID:             uuid.NewString(),
		ProductID:      state.ProductID,
		InvoiceID:      input.InvoiceID,
		Kind:           input.Kind,
		Quantity:       input.Quantity,
		QuantityBefore: state.StockQty,
		QuantityAfter:  after,
		Sequence:       state.Sequence + 1,
		Note:           input.Note,
		CreatedBy:      optional(identity.UserID),
		BusinessID:     optional(identity.BusinessID),
		CreatedAt:      s.now(),
	}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return Movement{}, err
	}
	if err := tx.UpdateStock(ctx, m.ProductID, m.QuantityAfter, m.Sequence); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// LockProducts takes the in-process locks for every product id in sorted order.
func (s *Service) LockProducts(ctx context.Context, productIDs []string) (func(), error) {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, shared.StockLockKey(id))
	}
	return s.locks.LockMany(ctx, keys)
}

// Committed runs the post-commit side effects for movements posted through ApplyTx.
func (s *Service) Committed(ctx context.Context, movements []Movement) {
	for _, m := range movements {
		s.observe(m.Kind, nil)
		s.afterCommit(ctx, m)
	}
}

func (s *Service) afterCommit(ctx context.Context, m Movement) {
	ctx = context.WithoutCancel(ctx)
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "stock.movement",
			Entity:   "product",
			EntityID: m.ProductID,
			Meta: map[string]any{
				"movement_id": m.ID,
				"kind":        string(m.Kind),
				"quantity":    m.Quantity,
				"before":      m.QuantityBefore,
				"after":       m.QuantityAfter,
				"sequence":    m.Sequence,
			},
			At: m.CreatedAt,
		})
		if err != nil {
			s.logger.Warn("audit stock movement", slog.String("movement_id", m.ID), slog.Any("error", err))
		}
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate stock alerts", slog.Any("error", err))
	}
	s.logger.Debug("stock movement recorded",
		slog.String("product_id", m.ProductID),
		slog.String("kind", string(m.Kind)),
		slog.Int64("quantity", m.Quantity),
		slog.Int64("after", m.QuantityAfter))
}

func (s *Service) observe(kind MovementKind, err error) {
	if s.metrics != nil {
		s.metrics.ObserveMovement(string(kind), err)
	}
}

// GetHistory returns every movement of a product newest first. Soft-deleted products keep
// their history; an id with no movements, known or not, yields an empty slice.
func (s *Service) GetHistory(ctx context.Context, productID string) ([]Movement, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, shared.FieldError("product_id", "is required")
	}
	history, err := s.repo.History(ctx, productID, 0)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []Movement{}
	}
	return history, nil
}

// RecordBatch applies many movements. Independent batches commit row by row and report
// per-row outcomes; rows for the same product keep their input order while different
// products proceed concurrently. A row carrying an IdempotencyKey is claimed like a
// single movement. Atomic batches commit all rows or none and ignore row keys.
func (s *Service) RecordBatch(ctx context.Context, inputs []MovementInput, opts BatchOptions) ([]BatchResult, error) {
	if len(inputs) == 0 {
		return []BatchResult{}, nil
	}
	if opts.Atomic {
		return s.recordAtomic(ctx, inputs)
	}

	results := make([]BatchResult, len(inputs))
	groups := make(map[string][]int)
	order := make([]string, 0)
	for i, in := range inputs {
		results[i].Index = i
		id := strings.TrimSpace(in.ProductID)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for _, id := range order {
		indexes := groups[id]
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				m, err := s.RecordMovement(gctx, inputs[i])
				if err != nil {
					results[i].Err = err
					results[i].Error = err.Error()
					continue
				}
				results[i].Movement = &m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) recordAtomic(ctx context.Context, inputs []MovementInput) ([]BatchResult, error) {
	ids := make([]string, 0, len(inputs))
	for i := range inputs {
		inputs[i] = normalizeInput(inputs[i])
		if err := validateInput(inputs[i]); err != nil {
			return nil, rowError(i, err)
		}
		ids = append(ids, inputs[i].ProductID)
	}

	unlock, err := s.LockProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var movements []Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = movements[:0]
		for i, in := range inputs {
			m, err := s.ApplyTx(ctx, tx, in)
			if err != nil {
				return rowError(i, err)
			}
			movements = append(movements, m)
		}
		return nil
	})
	if err != nil {
		for _, in := range inputs {
			s.observe(in.Kind, err)
		}
		return nil, err
	}
	s.Committed(ctx, movements)

	results := make([]BatchResult, len(movements))
	for i := range movements {
		results[i] = BatchResult{Index: i, Movement: &movements[i]}
	}
	return results, nil
}

// rowError prefixes err with the batch row while keeping its kind for the caller.
func rowError(i int, err error) error {
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr.Fields))
		for k, v := range verr.Fields {
			fields["rows["+strconv.Itoa(i)+"]."+k] = v
		}
		return &shared.ValidationError{Message: fmt.Sprintf("row %d: %s", i, verr.Error()), Fields: fields, Err: verr.Err}
	}
	return fmt.Errorf("row %d: %w", i, err)
}

// Verify replays a product's ledger from its opening quantity and compares the result
// with the cached stock counter.
func (s *Service) Verify(ctx context.Context, productID string) (VerifyReport, error) {
	state, err := s.repo.LoadState(ctx, productID)
	if err != nil {
		return VerifyReport{}, err
	}
	movements, err := s.repo.Ledger(ctx, productID)
	if err != nil {
		return VerifyReport{}, err
	}
	return Fold(state, movements), nil
}

// Fold checks every link of the movement chain. movements must be in sequence order.
func Fold(state StockState, movements []Movement) VerifyReport {
	report := VerifyReport{
		ProductID:  state.ProductID,
		SKU:        state.SKU,
		OpeningQty: state.OpeningQty,
		StockQty:   state.StockQty,
		Movements:  len(movements),
	}
	qty := state.OpeningQty
	for i, m := range movements {
		if want := int64(i + 1); m.Sequence != want {
			report.Problems = append(report.Problems, fmt.Sprintf("movement %s: sequence %d, expected %d", m.ID, m.Sequence, want))
		}
		if m.QuantityBefore != qty {
			report.Problems = append(report.Problems, fmt.Sprintf("movement %s: before %d, expected %d", m.ID, m.QuantityBefore, qty))
		}
		if m.QuantityAfter != m.QuantityBefore+m.Quantity {
			report.Problems = append(report.Problems, fmt.Sprintf("movement %s: after %d does not equal before %d plus %d", m.ID, m.QuantityAfter, m.QuantityBefore, m.Quantity))
		}
		qty += m.Quantity
	}
	report.FoldedQty = qty
	if qty != state.StockQty {
		report.Problems = append(report.Problems, fmt.Sprintf("stock_qty %d does not match folded quantity %d", state.StockQty, qty))
	}
	if state.Sequence != int64(len(movements)) {
		report.Problems = append(report.Problems, fmt.Sprintf("movement_seq %d does not match %d movements", state.Sequence, len(movements)))
	}
	report.Consistent = len(report.Problems) == 0
	return report
}

// VerifyAll verifies every product, including soft-deleted ones, and returns the reports.
func (s *Service) VerifyAll(ctx context.Context) ([]VerifyReport, error) {
	ids, err := s.repo.ProductIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]VerifyReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.Verify(ctx, id)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LowStock returns live, active products at or below their threshold, served from the
// alert cache when one is configured.
func (s *Service) LowStock(ctx context.Context) ([]Alert, error) {
	return s.cache.Fetch(ctx, s.repo.LowStock)
}

// RefreshAlerts recomputes the low-stock list and stores it in the cache.
func (s *Service) RefreshAlerts(ctx context.Context) ([]Alert, error) {
	alerts, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, alerts); err != nil {
		s.logger.Warn("store stock alerts", slog.Any("error", err))
	}
	return alerts, nil
}

func normalizeInput(in MovementInput) MovementInput {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Kind = MovementKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	in.Note = strings.TrimSpace(in.Note)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.InvoiceID != nil && strings.TrimSpace(*in.InvoiceID) == "" {
		in.InvoiceID = nil
	}
	return in
}

func validateInput(in MovementInput) error {
	if err := mdshared.Validate(in); err != nil {
		return err
	}
	return in.Kind.checkSign(in.Quantity)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
