package products

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

// AuditPort records product changes.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service orchestrates product catalogue operations.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the product service. audit may be nil.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns live products matching filters, newest first.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

// Get returns the live product with id. found is false when it is absent or soft-deleted.
func (s *Service) Get(ctx context.Context, id string) (Product, bool, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, false, nil
	}
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, internalShared.ErrNotFound) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

// Resolve looks a product up for history display, including soft-deleted rows.
func (s *Service) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return s.repo.Resolve(ctx, id)
}

// Create stores a new product. The supplied stock quantity becomes its opening quantity.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	if err := s.validateCreate(req); err != nil {
		return Product{}, err
	}
	if err := s.repo.CheckReferences(ctx, shared.BlankToNil(req.CategoryID), shared.BlankToNil(req.SupplierID)); err != nil {
		return Product{}, err
	}

	now := s.now()
	p := Product{
		ID:                uuid.NewString(),
		SKU:               strings.TrimSpace(req.SKU),
		Name:              strings.TrimSpace(req.Name),
		Description:       shared.BlankToNil(req.Description),
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		TaxRate:           req.TaxRate,
		StockQty:          req.StockQty,
		OpeningQty:        req.StockQty,
		LowStockThreshold: shared.DefaultLowStockThreshold,
		Unit:              strings.TrimSpace(req.Unit),
		Barcode:           shared.BlankToNil(req.Barcode),
		CategoryID:        shared.BlankToNil(req.CategoryID),
		SupplierID:        shared.BlankToNil(req.SupplierID),
		ImageURL:          shared.BlankToNil(req.ImageURL),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if p.Unit == "" {
		p.Unit = shared.DefaultUnit
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if biz := internalShared.IdentityFromContext(ctx).BusinessID; biz != "" {
		p.BusinessID = &biz
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.created", created.ID, map[string]any{"sku": created.SKU, "opening_qty": created.OpeningQty})
	return created, nil
}

// Update merges a partial update into the live product.
func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (Product, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.validateUpdate(current, req); err != nil {
		return Product{}, err
	}

	next := current
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		next.Description = shared.BlankToNil(req.Description)
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.CostPrice != nil {
		next.CostPrice = *req.CostPrice
	}
	if req.TaxRate != nil {
		next.TaxRate = *req.TaxRate
	}
	if req.LowStockThreshold != nil {
		next.LowStockThreshold = *req.LowStockThreshold
	}
	if req.Unit != nil {
		next.Unit = strings.TrimSpace(*req.Unit)
		if next.Unit == "" {
			next.Unit = shared.DefaultUnit
		}
	}
	if req.Barcode != nil {
		next.Barcode = shared.BlankToNil(req.Barcode)
	}
	if req.CategoryID != nil {
		next.CategoryID = shared.BlankToNil(req.CategoryID)
	}
	if req.SupplierID != nil {
		next.SupplierID = shared.BlankToNil(req.SupplierID)
	}
	if req.ImageURL != nil {
		next.ImageURL = shared.BlankToNil(req.ImageURL)
	}
	if req.IsActive != nil {
		next.IsActive = *req.IsActive
	}
	if err := s.repo.CheckReferences(ctx, changed(current.CategoryID, next.CategoryID), changed(current.SupplierID, next.SupplierID)); err != nil {
		return Product{}, err
	}
	next.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.updated", updated.ID, nil)
	return updated, nil
}

// Delete soft-deletes the product. Its movement history is retained.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, "product.deleted", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{Action: action, Entity: "product", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("product_id", id), slog.Any("error", err))
	}
}

// changed returns next when it differs from current so unchanged references are not rechecked.
func changed(current, next *string) *string {
	if next == nil {
		return nil
	}
	if current != nil && *current == *next {
		return nil
	}
	return next
}
