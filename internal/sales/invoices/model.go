package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells whether an invoice sells to a customer or buys from a supplier.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// StatusVoid marks an invoice whose stock effects were reversed.
const StatusVoid = "void"

// Invoice is a sale or purchase document. Its items post stock movements when created.
type Invoice struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	Kind       Kind            `json:"kind"`
	CustomerID *string         `json:"customer_id"`
	SupplierID *string         `json:"supplier_id"`
	Status     string          `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Note       string          `json:"note"`
	IssuedAt   time.Time       `json:"issued_at"`
	CreatedBy  *string         `json:"created_by,omitempty"`
	BusinessID *string         `json:"business_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Items      []Item          `json:"items,omitempty"`
	Payments   []Payment       `json:"payments,omitempty"`
}

// Item snapshots the product at the time of sale so later catalogue edits do not rewrite history.
type Item struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	ProductID   string          `json:"product_id"`
	LineNo      int             `json:"line_no"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Payment struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference *string         `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// ProductSnapshot is the catalogue data an item copies.
type ProductSnapshot struct {
	ID        string
	SKU       string
	Name      string
	Price     decimal.Decimal
	CostPrice decimal.Decimal
	TaxRate   decimal.Decimal
}
