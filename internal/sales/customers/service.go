package customers

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

// Get returns nil without error when the customer is absent or deleted.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, internalShared.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return s.repo.Resolve(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	req.Email = shared.BlankToNil(req.Email)
	req.Phone = shared.BlankToNil(req.Phone)
	req.Address = shared.BlankToNil(req.Address)
	if err := shared.Validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, internalShared.FieldError("name", "is required")
	}

	now := s.now()
	customer := Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	if biz := internalShared.IdentityFromContext(ctx).BusinessID; biz != "" {
		customer.BusinessID = &biz
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	s.record(ctx, "customer.created", customer.ID)
	return &customer, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateCustomerRequest) (*Customer, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, internalShared.FieldError("name", "is required")
		}
		updates["name"] = name
	}
	optional := map[string]**string{"email": &req.Email, "phone": &req.Phone, "address": &req.Address}
	for col, field := range optional {
		if *field == nil {
			continue
		}
		*field = shared.BlankToNil(*field)
		if *field == nil {
			updates[col] = nil
		} else {
			updates[col] = **field
		}
	}
	if err := shared.Validate(req); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, err
		}
		s.record(ctx, "customer.updated", id)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, "customer.deleted", id)
	return nil
}

func (s *Service) record(ctx context.Context, action, id string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{Action: action, Entity: "customer", EntityID: id}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
