package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable item. StockQty is a cache of the ledger and is only
// written by the stock ledger.
type Product struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       *string         `json:"description"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	StockQty          int64           `json:"stock_qty"`
	OpeningQty        int64           `json:"opening_qty"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
	Unit              string          `json:"unit"`
	Barcode           *string         `json:"barcode"`
	CategoryID        *string         `json:"category_id"`
	SupplierID        *string         `json:"supplier_id"`
	ImageURL          *string         `json:"image_url"`
	IsActive          bool            `json:"is_active"`
	BusinessID        *string         `json:"business_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         *time.Time      `json:"deleted_at,omitempty"`
}

// LowStock reports whether the product is at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.StockQty <= p.LowStockThreshold
}
