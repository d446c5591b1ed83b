package categories

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

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, error) {
	return s.repo.List(ctx, filters)
}

// Get returns found=false rather than an error when the category is absent or deleted.
func (s *Service) Get(ctx context.Context, id string) (Category, bool, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, internalShared.ErrNotFound) {
		return Category{}, false, nil
	}
	if err != nil {
		return Category{}, false, err
	}
	return c, true, nil
}

func (s *Service) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return s.repo.Resolve(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateCategoryRequest) (Category, error) {
	if err := s.validateCreate(req); err != nil {
		return Category{}, err
	}
	now := s.now()
	c := Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if biz := internalShared.IdentityFromContext(ctx).BusinessID; biz != "" {
		c.BusinessID = &biz
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, "category.created", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateCategoryRequest) (Category, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if err := s.validateUpdate(req); err != nil {
		return Category{}, err
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, "category.updated", id)
	return updated, nil
}

// Delete soft-deletes the category. Products keep pointing at it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, "category.deleted", id)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{Action: action, Entity: "category", EntityID: id}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
