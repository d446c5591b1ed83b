package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/masterdata/products"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/shared"
	"github.com/ledgerly/ledgerly/internal/testing/dbtest"
)

type ledgerFixture struct {
	store    *db.DB
	ledger   *Service
	products *products.Service
}

func newLedgerFixture(t *testing.T, cfg ServiceConfig) ledgerFixture {
	t.Helper()
	store := dbtest.Open(t)
	audit := shared.NewAuditLogger(store)
	return ledgerFixture{
		store: store,
		ledger: newTestService(NewRepository(store), cfg,
			WithAudit(audit), WithIdempotency(shared.NewIdempotencyStore(store))),
		products: products.NewService(products.NewRepository(store), audit, nil),
	}
}

func (f ledgerFixture) product(t *testing.T, sku string, stock int64) products.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), products.CreateProductRequest{SKU: sku, Name: sku, StockQty: stock})
	require.NoError(t, err)
	return p
}

func (f ledgerFixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, f.store.QueryRow(context.Background(), `SELECT stock_qty FROM products WHERE id = ?`, id).Scan(&qty))
	return qty
}

func TestSQLOpeningThenSaleScenario(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	p := f.product(t, "PEN", 0)

	_, err := f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindOpeningStock, Quantity: 50})
	require.NoError(t, err)
	_, err = f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindSale, Quantity: -12})
	require.NoError(t, err)

	require.Equal(t, int64(38), f.stock(t, p.ID))
	history, err := f.ledger.GetHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, KindSale, history[0].Kind)
	require.Equal(t, int64(50), history[0].QuantityBefore)
	require.Equal(t, int64(38), history[0].QuantityAfter)
	require.Equal(t, KindOpeningStock, history[1].Kind)
	require.Nil(t, history[1].InvoiceID)

	report, err := f.ledger.Verify(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent, report.Problems)
	require.Equal(t, int64(38), report.FoldedQty)
}

func TestSQLConcurrentMovementsSerialize(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	p := f.product(t, "PEN", 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, in := range []MovementInput{
		{ProductID: p.ID, Kind: KindPurchase, Quantity: 5},
		{ProductID: p.ID, Kind: KindSale, Quantity: -3},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.ledger.RecordMovement(context.Background(), in)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int64(12), f.stock(t, p.ID))

	history, err := f.ledger.GetHistory(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, history[1].QuantityAfter, history[0].QuantityBefore)
}

func TestSQLConservationAcrossManyWriters(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	a := f.product(t, "A", 0)
	b := f.product(t, "B", 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordMovement(context.Background(), MovementInput{ProductID: a.ID, Kind: KindPurchase, Quantity: 3})
			require.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordMovement(context.Background(), MovementInput{ProductID: b.ID, Kind: KindSale, Quantity: -2})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(60), f.stock(t, a.ID))
	require.Equal(t, int64(60), f.stock(t, b.ID))
	reports, err := f.ledger.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		require.True(t, r.Consistent, r.Problems)
		require.Equal(t, 20, r.Movements)
	}
}

func TestSQLFailedStockWriteRollsBackMovement(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	p := f.product(t, "PEN", 10)

	_, err := f.store.Exec(ctx, `CREATE TRIGGER reject_stock BEFORE UPDATE OF stock_qty ON products
		WHEN NEW.stock_qty = 999 BEGIN SELECT RAISE(ABORT, 'stock write rejected'); END`)
	require.NoError(t, err)

	_, err = f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 989, IdempotencyKey: "retry-me"})
	require.ErrorIs(t, err, shared.ErrStorage)

	require.Equal(t, int64(10), f.stock(t, p.ID))
	history, err := f.ledger.GetHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	// The key was released, so the client may retry once the fault is gone.
	_, err = f.store.Exec(ctx, `DROP TRIGGER reject_stock`)
	require.NoError(t, err)
	m, err := f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 989, IdempotencyKey: "retry-me"})
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Sequence)
	require.Equal(t, int64(999), f.stock(t, p.ID))
}

func TestSQLDeletedProductKeepsHistoryButRejectsMovements(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	p := f.product(t, "PEN", 0)

	_, err := f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 4})
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, p.ID))

	_, err = f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)

	history, err := f.ledger.GetHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	unknown, err := f.ledger.GetHistory(ctx, "does-not-exist")
	require.NoError(t, err)
	require.Empty(t, unknown)
}

func TestSQLAtomicBatchRollsBackAcrossProducts(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: false})
	ctx := context.Background()
	a := f.product(t, "A", 5)
	b := f.product(t, "B", 1)

	_, err := f.ledger.RecordBatch(ctx, []MovementInput{
		{ProductID: a.ID, Kind: KindSale, Quantity: -2},
		{ProductID: b.ID, Kind: KindSale, Quantity: -2},
	}, BatchOptions{Atomic: true})
	require.ErrorIs(t, err, ErrNegativeStock)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "rows[1].quantity")
	require.Equal(t, int64(5), f.stock(t, a.ID))
	require.Equal(t, int64(1), f.stock(t, b.ID))

	results, err := f.ledger.RecordBatch(ctx, []MovementInput{
		{ProductID: a.ID, Kind: KindSale, Quantity: -2},
		{ProductID: b.ID, Kind: KindSale, Quantity: -2},
	}, BatchOptions{})
	require.NoError(t, err)
	require.NotNil(t, results[0].Movement)
	require.ErrorIs(t, results[1].Err, ErrNegativeStock)
	require.Equal(t, int64(3), f.stock(t, a.ID))
}

func TestSQLLowStockAlerts(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	low := f.product(t, "LOW", 3)
	f.product(t, "HIGH", 80)
	empty := f.product(t, "EMPTY", 0)

	alerts, err := f.ledger.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, empty.ID, alerts[0].ProductID)
	require.True(t, alerts[0].OutOfStock)
	require.Equal(t, low.ID, alerts[1].ProductID)
	require.False(t, alerts[1].OutOfStock)
}

func TestSQLIdempotencyReplayConflicts(t *testing.T) {
	f := newLedgerFixture(t, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	p := f.product(t, "PEN", 0)

	_, err := f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 2, IdempotencyKey: "abc"})
	require.NoError(t, err)
	_, err = f.ledger.RecordMovement(ctx, MovementInput{ProductID: p.ID, Kind: KindPurchase, Quantity: 2, IdempotencyKey: "abc"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, int64(2), f.stock(t, p.ID))
}
