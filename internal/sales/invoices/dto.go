package invoices

import "github.com/shopspring/decimal"

type CreateInvoiceRequest struct {
	Number     string           `json:"number" validate:"required,max=64"`
	Kind       Kind             `json:"kind" validate:"required,oneof=sale purchase"`
	CustomerID *string          `json:"customer_id"`
	SupplierID *string          `json:"supplier_id"`
	Discount   decimal.Decimal  `json:"discount" validate:"gte=0"`
	Note       string           `json:"note" validate:"max=500"`
	Items      []ItemRequest    `json:"items" validate:"required,min=1,dive"`
	Payments   []PaymentRequest `json:"payments" validate:"dive"`
}

// ItemRequest leaves UnitPrice and TaxRate empty to use the product's current values.
type ItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int64            `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	TaxRate   *decimal.Decimal `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
}

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer ewallet other"`
	Reference *string         `json:"reference" validate:"omitempty,max=120"`
}

type VoidRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// ListFilter narrows List. Search matches the invoice number.
type ListFilter struct {
	Kind       *Kind
	Status     *string
	CustomerID *string
	SupplierID *string
	Search     string
}
