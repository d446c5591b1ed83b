package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateTotals(t *testing.T) {
	totals := CalculateTotals([]Line{
		{Quantity: 3, UnitPrice: dec("2.50"), TaxRate: dec("10")},
		{Quantity: 1, UnitPrice: dec("19.99"), TaxRate: dec("0")},
	}, dec("1.00"))

	require.True(t, totals.Subtotal.Equal(dec("27.49")), totals.Subtotal.String())
	require.True(t, totals.Tax.Equal(dec("0.75")), totals.Tax.String())
	require.True(t, totals.Total.Equal(dec("27.24")), totals.Total.String())
}

func TestCalculateLineTaxRounds(t *testing.T) {
	require.True(t, CalculateLineTax(dec("0.10"), dec("15")).Equal(dec("0.02")))
}

func TestPaymentStatus(t *testing.T) {
	require.Equal(t, StatusUnpaid, PaymentStatus(dec("10"), decimal.Zero))
	require.Equal(t, StatusPartial, PaymentStatus(dec("10"), dec("4")))
	require.Equal(t, StatusPaid, PaymentStatus(dec("10"), dec("10")))
	require.Equal(t, StatusPaid, PaymentStatus(dec("10"), dec("12")))
	require.Equal(t, StatusPaid, PaymentStatus(decimal.Zero, decimal.Zero))
}
