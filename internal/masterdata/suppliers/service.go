package suppliers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (Supplier, bool, error) {
	sup, err := s.repo.Get(ctx, id)
	if errors.Is(err, internalShared.ErrNotFound) {
		return Supplier{}, false, nil
	}
	if err != nil {
		return Supplier{}, false, err
	}
	return sup, true, nil
}

func (s *Service) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return s.repo.Resolve(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateSupplierRequest) (Supplier, error) {
	req.normalize()
	if err := s.validateCreate(req); err != nil {
		return Supplier{}, err
	}
	now := s.now()
	sup := Supplier{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.IsActive != nil {
		sup.IsActive = *req.IsActive
	}
	if biz := internalShared.IdentityFromContext(ctx).BusinessID; biz != "" {
		sup.BusinessID = &biz
	}
	created, err := s.repo.Create(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "supplier.created", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateSupplierRequest) (Supplier, error) {
	sup, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	raw := req
	req.normalize()
	if err := s.validateUpdate(req); err != nil {
		return Supplier{}, err
	}
	if req.Name != nil {
		sup.Name = strings.TrimSpace(*req.Name)
	}
	// A field sent as an empty string clears it.
	if raw.ContactPerson != nil {
		sup.ContactPerson = req.ContactPerson
	}
	if raw.Phone != nil {
		sup.Phone = req.Phone
	}
	if raw.Email != nil {
		sup.Email = req.Email
	}
	if raw.Address != nil {
		sup.Address = req.Address
	}
	if req.IsActive != nil {
		sup.IsActive = *req.IsActive
	}
	sup.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "supplier.updated", id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, "supplier.deleted", id)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{Action: action, Entity: "supplier", EntityID: id}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
