package suppliers

import (
	"strings"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

func trim(v *string) *string { return shared.BlankToNil(v) }

func (s *Service) validateCreate(req CreateSupplierRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}

func (s *Service) validateUpdate(req UpdateSupplierRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}
