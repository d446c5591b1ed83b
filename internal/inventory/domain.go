package inventory

import (
	"errors"
	"time"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// MovementKind enumerates the events that change a product's stock.
type MovementKind string

const (
	// KindSale decreases stock.
	KindSale MovementKind = "sale"
	// KindPurchase increases stock.
	KindPurchase MovementKind = "purchase"
	// KindAdjustment corrects stock in either direction. Zero is accepted as an audit entry.
	KindAdjustment MovementKind = "adjustment"
	// KindReturn increases stock.
	KindReturn MovementKind = "return"
	// KindOpeningStock seeds stock.
	KindOpeningStock MovementKind = "opening_stock"
)

// Valid reports whether k is a known kind.
func (k MovementKind) Valid() bool {
	switch k {
	case KindSale, KindPurchase, KindAdjustment, KindReturn, KindOpeningStock:
		return true
	}
	return false
}

// checkSign enforces the direction each kind may move stock in.
func (k MovementKind) checkSign(qty int64) error {
	switch k {
	case KindSale:
		if qty >= 0 {
			return shared.FieldError("quantity", "must be negative for sale")
		}
	case KindPurchase, KindReturn, KindOpeningStock:
		if qty <= 0 {
			return shared.FieldError("quantity", "must be positive for "+string(k))
		}
	case KindAdjustment:
	default:
		return shared.FieldError("kind", "must be one of sale, purchase, adjustment, return, opening_stock")
	}
	return nil
}

// Movement is an immutable ledger entry. QuantityAfter always equals
// QuantityBefore + Quantity, and Sequence increases by one per product.
type Movement struct {
	ID             string       `json:"id"`
	ProductID      string       `json:"product_id"`
	InvoiceID      *string      `json:"invoice_id"`
	Kind           MovementKind `json:"kind"`
	Quantity       int64        `json:"quantity"`
	QuantityBefore int64        `json:"quantity_before"`
	QuantityAfter  int64        `json:"quantity_after"`
	Sequence       int64        `json:"sequence"`
	Note           string       `json:"note"`
	CreatedBy      *string      `json:"created_by,omitempty"`
	BusinessID     *string      `json:"business_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// MovementInput describes a requested stock change.
type MovementInput struct {
	ProductID      string       `json:"product_id" validate:"required"`
	Kind           MovementKind `json:"kind" validate:"required"`
	Quantity       int64        `json:"quantity"`
	InvoiceID      *string      `json:"invoice_id,omitempty"`
	Note           string       `json:"note,omitempty" validate:"max=500"`
	IdempotencyKey string       `json:"-"`
}

// StockState is the locked product row a movement is computed from.
type StockState struct {
	ProductID  string
	SKU        string
	Name       string
	StockQty   int64
	OpeningQty int64
	Sequence   int64
	Deleted    bool
}

// BatchOptions controls RecordBatch.
type BatchOptions struct {
	// Atomic applies every row in one transaction; any failure rolls back all rows.
	Atomic bool `json:"atomic"`
}

// BatchResult reports the outcome of one batch row.
type BatchResult struct {
	Index    int       `json:"index"`
	Movement *Movement `json:"movement,omitempty"`
	Error    string    `json:"error,omitempty"`
	Err      error     `json:"-"`
}

// VerifyReport is the result of folding a product's history.
type VerifyReport struct {
	ProductID  string   `json:"product_id"`
	SKU        string   `json:"sku"`
	OpeningQty int64    `json:"opening_qty"`
	StockQty   int64    `json:"stock_qty"`
	FoldedQty  int64    `json:"folded_qty"`
	Movements  int      `json:"movements"`
	Consistent bool     `json:"consistent"`
	Problems   []string `json:"problems,omitempty"`
}

// Alert flags a live, active product at or below its threshold.
type Alert struct {
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	StockQty   int64  `json:"stock_qty"`
	Threshold  int64  `json:"threshold"`
	Unit       string `json:"unit"`
	OutOfStock bool   `json:"out_of_stock"`
}

// ErrNegativeStock is returned when negative stock is disabled and a movement would cross zero.
var ErrNegativeStock = errors.New("inventory: negative stock not allowed")
