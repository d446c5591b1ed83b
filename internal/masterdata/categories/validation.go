package categories

import (
	"strings"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

func (s *Service) validateCreate(req CreateCategoryRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}

func (s *Service) validateUpdate(req UpdateCategoryRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}
