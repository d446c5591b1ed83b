package products

import "github.com/shopspring/decimal"

// CreateProductRequest carries the fields accepted on creation. StockQty becomes the
// opening quantity the ledger folds from.
type CreateProductRequest struct {
	SKU               string          `json:"sku" validate:"required,max=64"`
	Name              string          `json:"name" validate:"required,max=200"`
	Description       *string         `json:"description"`
	Price             decimal.Decimal `json:"price" validate:"gte=0"`
	CostPrice         decimal.Decimal `json:"cost_price" validate:"gte=0"`
	TaxRate           decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`
	StockQty          int64           `json:"stock_qty"`
	LowStockThreshold *int64          `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Unit              string          `json:"unit" validate:"max=20"`
	Barcode           *string         `json:"barcode" validate:"omitempty,max=64"`
	CategoryID        *string         `json:"category_id"`
	SupplierID        *string         `json:"supplier_id"`
	ImageURL          *string         `json:"image_url"`
	IsActive          *bool           `json:"is_active"`
}

// UpdateProductRequest is a partial update; nil fields are left unchanged.
// SKU and StockQty are accepted only when they repeat the stored value.
type UpdateProductRequest struct {
	SKU               *string          `json:"sku"`
	Name              *string          `json:"name" validate:"omitempty,max=200"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	CostPrice         *decimal.Decimal `json:"cost_price" validate:"omitempty,gte=0"`
	TaxRate           *decimal.Decimal `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	StockQty          *int64           `json:"stock_qty"`
	LowStockThreshold *int64           `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Unit              *string          `json:"unit" validate:"omitempty,max=20"`
	Barcode           *string          `json:"barcode" validate:"omitempty,max=64"`
	CategoryID        *string          `json:"category_id"`
	SupplierID        *string          `json:"supplier_id"`
	ImageURL          *string          `json:"image_url"`
	IsActive          *bool            `json:"is_active"`
}
