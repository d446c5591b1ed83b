package shared

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is the priced part of an invoice item.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// Totals are the header amounts of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateLineTotal returns quantity × unit price.
func CalculateLineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// CalculateLineTax returns the tax owed on a line total at a percentage rate, rounded to cents.
func CalculateLineTax(lineTotal, taxRate decimal.Decimal) decimal.Decimal {
	return lineTotal.Mul(taxRate).Div(hundred).Round(2)
}

// CalculateTotals sums the lines. The discount applies to the whole invoice after tax is computed per line.
func CalculateTotals(lines []Line, discount decimal.Decimal) Totals {
	t := Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, Discount: discount}
	for _, l := range lines {
		lt := CalculateLineTotal(l.Quantity, l.UnitPrice)
		t.Subtotal = t.Subtotal.Add(lt)
		t.Tax = t.Tax.Add(CalculateLineTax(lt, l.TaxRate))
	}
	t.Total = t.Subtotal.Sub(discount).Add(t.Tax)
	return t
}

// Payment states derived from the paid amount.
const (
	StatusUnpaid  = "unpaid"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// PaymentStatus derives the settlement state of an invoice.
func PaymentStatus(total, paid decimal.Decimal) string {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		if total.LessThanOrEqual(decimal.Zero) {
			return StatusPaid
		}
		return StatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartial
	}
}
