package products

import (
	"strings"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

func (s *Service) validateCreate(req CreateProductRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.SKU) == "" {
		return internalShared.FieldError("sku", "is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}

func (s *Service) validateUpdate(current Product, req UpdateProductRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	if req.SKU != nil && strings.TrimSpace(*req.SKU) != current.SKU {
		return internalShared.FieldError("sku", "cannot be changed")
	}
	if req.StockQty != nil && *req.StockQty != current.StockQty {
		return internalShared.FieldError("stock_qty", "can only change through stock movements")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return internalShared.FieldError("name", "is required")
	}
	return nil
}
