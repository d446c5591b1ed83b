package invoices

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/inventory"
	"github.com/ledgerly/ledgerly/internal/masterdata/products"
	"github.com/ledgerly/ledgerly/internal/masterdata/suppliers"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/sales/customers"
	"github.com/ledgerly/ledgerly/internal/sales/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
	"github.com/ledgerly/ledgerly/internal/testing/dbtest"
)

type fixture struct {
	store     *db.DB
	invoices  *Service
	ledger    *inventory.Service
	products  *products.Service
	customers *customers.Service
	suppliers *suppliers.Service
}

func newFixture(t *testing.T, allowNegative bool) fixture {
	t.Helper()
	store := dbtest.Open(t)
	audit := internalShared.NewAuditLogger(store)
	ledger := inventory.NewService(inventory.NewRepository(store), inventory.ServiceConfig{AllowNegativeStock: allowNegative}, nil,
		inventory.WithAudit(audit))
	return fixture{
		store:     store,
		invoices:  NewService(NewRepository(store), ledger, audit, nil),
		ledger:    ledger,
		products:  products.NewService(products.NewRepository(store), audit, nil),
		customers: customers.NewService(customers.NewRepository(store), audit, nil),
		suppliers: suppliers.NewService(suppliers.NewRepository(store), audit, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f fixture) product(t *testing.T, sku, price, tax string, stock int64) products.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), products.CreateProductRequest{
		SKU: sku, Name: sku, Price: dec(price), CostPrice: dec(price).Div(decimal.NewFromInt(2)), TaxRate: dec(tax), StockQty: stock,
	})
	require.NoError(t, err)
	return p
}

func (f fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	p, found, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	return p.StockQty
}

func TestCreateSaleInvoicePostsMovementsAndTotals(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	pen := f.product(t, "PEN", "2.50", "10", 20)
	book := f.product(t, "BOOK", "19.99", "0", 5)
	cust, err := f.customers.Create(ctx, customers.CreateCustomerRequest{Name: "Ana"})
	require.NoError(t, err)

	inv, err := f.invoices.Create(ctx, CreateInvoiceRequest{
		Number:     "INV-0001",
		Kind:       KindSale,
		CustomerID: &cust.ID,
		Discount:   dec("1"),
		Items: []ItemRequest{
			{ProductID: pen.ID, Quantity: 3},
			{ProductID: book.ID, Quantity: 1},
		},
		Payments: []PaymentRequest{{Amount: dec("10"), Method: "cash"}},
	})
	require.NoError(t, err)
	require.True(t, inv.Subtotal.Equal(dec("27.49")))
	require.True(t, inv.Tax.Equal(dec("0.75")))
	require.True(t, inv.Total.Equal(dec("27.24")))
	require.Equal(t, shared.StatusPartial, inv.Status)
	require.Equal(t, "PEN", inv.Items[0].SKU)

	require.Equal(t, int64(17), f.stock(t, pen.ID))
	require.Equal(t, int64(4), f.stock(t, book.ID))

	history, err := f.ledger.GetHistory(ctx, pen.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, inventory.KindSale, history[0].Kind)
	require.Equal(t, inv.ID, *history[0].InvoiceID)

	stored, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	require.Len(t, stored.Payments, 1)
	require.True(t, stored.Total.Equal(dec("27.24")))
}

func TestCreatePurchaseUsesCostPriceAndAddsStock(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ink := f.product(t, "INK", "8", "0", 0)
	sup, err := f.suppliers.Create(ctx, suppliers.CreateSupplierRequest{Name: "Acme"})
	require.NoError(t, err)

	inv, err := f.invoices.Create(ctx, CreateInvoiceRequest{
		Number: "PO-1", Kind: KindPurchase, SupplierID: &sup.ID,
		Items: []ItemRequest{{ProductID: ink.ID, Quantity: 12}},
	})
	require.NoError(t, err)
	require.True(t, inv.Items[0].UnitPrice.Equal(dec("4")))
	require.Equal(t, shared.StatusUnpaid, inv.Status)
	require.Equal(t, int64(12), f.stock(t, ink.ID))
}

func TestCreateInvoiceIsAllOrNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	a := f.product(t, "A", "1", "0", 10)
	b := f.product(t, "B", "1", "0", 1)

	_, err := f.invoices.Create(ctx, CreateInvoiceRequest{
		Number: "INV-9", Kind: KindSale,
		Items: []ItemRequest{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 5}},
	})
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.Equal(t, int64(10), f.stock(t, a.ID))
	require.Equal(t, int64(1), f.stock(t, b.ID))

	list, err := f.invoices.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "1", "0", 10)
	missing := "nope"

	cases := []CreateInvoiceRequest{
		{Kind: KindSale, Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}},
		{Number: "X", Kind: "refund", Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}},
		{Number: "X", Kind: KindSale},
		{Number: "X", Kind: KindSale, Items: []ItemRequest{{ProductID: p.ID, Quantity: 0}}},
		{Number: "X", Kind: KindSale, CustomerID: &missing, Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}},
		{Number: "X", Kind: KindSale, Discount: dec("5"), Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}},
	}
	for i, req := range cases {
		_, err := f.invoices.Create(ctx, req)
		require.ErrorIs(t, err, internalShared.ErrValidation, "case %d", i)
	}

	_, err := f.invoices.Create(ctx, CreateInvoiceRequest{Number: "X", Kind: KindSale, Items: []ItemRequest{{ProductID: "ghost", Quantity: 1}}})
	require.ErrorIs(t, err, internalShared.ErrNotFound)
	require.Equal(t, int64(10), f.stock(t, p.ID))
}

func TestDuplicateInvoiceNumber(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "1", "0", 10)
	req := CreateInvoiceRequest{Number: "INV-1", Kind: KindSale, Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}}

	_, err := f.invoices.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.invoices.Create(ctx, req)
	var verr *internalShared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "number")
	require.Equal(t, int64(9), f.stock(t, p.ID))
}

func TestAddPaymentSettlesInvoice(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "5", "0", 10)
	inv, err := f.invoices.Create(ctx, CreateInvoiceRequest{Number: "INV-2", Kind: KindSale, Items: []ItemRequest{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)

	inv, err = f.invoices.AddPayment(ctx, inv.ID, PaymentRequest{Amount: dec("4"), Method: "card"})
	require.NoError(t, err)
	require.Equal(t, shared.StatusPartial, inv.Status)
	inv, err = f.invoices.AddPayment(ctx, inv.ID, PaymentRequest{Amount: dec("6"), Method: "cash"})
	require.NoError(t, err)
	require.Equal(t, shared.StatusPaid, inv.Status)
	require.True(t, inv.AmountPaid.Equal(dec("10")))

	_, err = f.invoices.AddPayment(ctx, "unknown", PaymentRequest{Amount: dec("1"), Method: "cash"})
	require.ErrorIs(t, err, internalShared.ErrNotFound)
	_, err = f.invoices.AddPayment(ctx, inv.ID, PaymentRequest{Amount: dec("0"), Method: "cash"})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestVoidReversesStockOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "5", "0", 10)
	inv, err := f.invoices.Create(ctx, CreateInvoiceRequest{Number: "INV-3", Kind: KindSale, Items: []ItemRequest{{ProductID: p.ID, Quantity: 4}}})
	require.NoError(t, err)
	require.Equal(t, int64(6), f.stock(t, p.ID))

	voided, err := f.invoices.Void(ctx, inv.ID, VoidRequest{Note: "customer cancelled"})
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)
	require.Equal(t, int64(10), f.stock(t, p.ID))

	again, err := f.invoices.Void(ctx, inv.ID, VoidRequest{})
	require.NoError(t, err)
	require.Equal(t, StatusVoid, again.Status)
	require.Equal(t, int64(10), f.stock(t, p.ID))

	history, err := f.ledger.GetHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, inventory.KindReturn, history[0].Kind)

	_, err = f.invoices.AddPayment(ctx, inv.ID, PaymentRequest{Amount: dec("1"), Method: "cash"})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	report, err := f.ledger.Verify(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent, report.Problems)
}

func TestVoidPurchaseRemovesStock(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "5", "0", 0)
	inv, err := f.invoices.Create(ctx, CreateInvoiceRequest{Number: "PO-3", Kind: KindPurchase, Items: []ItemRequest{{ProductID: p.ID, Quantity: 7}}})
	require.NoError(t, err)
	_, err = f.invoices.Void(ctx, inv.ID, VoidRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(0), f.stock(t, p.ID))

	history, err := f.ledger.GetHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, inventory.KindAdjustment, history[0].Kind)
	require.Equal(t, int64(-7), history[0].Quantity)
}

func TestListFiltersAndOrdering(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.product(t, "A", "1", "0", 100)
	for _, n := range []string{"INV-10", "INV-11", "PO-12"} {
		kind := KindSale
		if n == "PO-12" {
			kind = KindPurchase
		}
		_, err := f.invoices.Create(ctx, CreateInvoiceRequest{Number: n, Kind: kind, Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}}})
		require.NoError(t, err)
	}

	sale := KindSale
	got, err := f.invoices.List(ctx, ListFilter{Kind: &sale})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = f.invoices.List(ctx, ListFilter{Search: "po-"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "PO-12", got[0].Number)

	unpaid := shared.StatusUnpaid
	got, err = f.invoices.List(ctx, ListFilter{Status: &unpaid})
	require.NoError(t, err)
	require.Len(t, got, 3)
}
