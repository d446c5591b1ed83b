package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/inventory"
	"github.com/ledgerly/ledgerly/internal/masterdata/products"
	"github.com/ledgerly/ledgerly/internal/shared"
	"github.com/ledgerly/ledgerly/internal/testing/dbtest"
)

type ledgerRig struct {
	ledger   *inventory.Service
	products *products.Service
}

func newLedgerRig(tb testing.TB) ledgerRig {
	tb.Helper()
	store := dbtest.Open(tb)
	audit := shared.NewAuditLogger(store)
	return ledgerRig{
		ledger: inventory.NewService(inventory.NewRepository(store),
			inventory.ServiceConfig{AllowNegativeStock: true, BatchConcurrency: 4}, nil,
			inventory.WithAudit(audit)),
		products: products.NewService(products.NewRepository(store), audit, nil),
	}
}

func (r ledgerRig) product(tb testing.TB, sku string) string {
	tb.Helper()
	p, err := r.products.Create(context.Background(), products.CreateProductRequest{SKU: sku, Name: sku})
	require.NoError(tb, err)
	return p.ID
}

// The embedded store must keep single movements well inside interactive latency.
func TestLedgerLatencyTargets(t *testing.T) {
	rig := newLedgerRig(t)
	id := rig.product(t, "LAT-1")
	ctx := context.Background()

	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Now()
		_, err := rig.ledger.RecordMovement(ctx, inventory.MovementInput{ProductID: id, Kind: inventory.KindPurchase, Quantity: 1})
		require.NoError(t, err)
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 250*time.Millisecond {
		t.Fatalf("movement latency regression: p95=%s threshold=250ms", p95)
	}

	report, err := rig.ledger.Verify(ctx, id)
	require.NoError(t, err)
	require.True(t, report.Consistent, report.Problems)
	require.Equal(t, int64(200), report.StockQty)
}

func BenchmarkRecordMovement(b *testing.B) {
	rig := newLedgerRig(b)
	id := rig.product(b, "BENCH-1")
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rig.ledger.RecordMovement(ctx, inventory.MovementInput{ProductID: id, Kind: inventory.KindAdjustment, Quantity: 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRecordBatchIndependent(b *testing.B) {
	rig := newLedgerRig(b)
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = rig.product(b, fmt.Sprintf("BENCH-B%d", i))
	}
	inputs := make([]inventory.MovementInput, 0, 32)
	for i := 0; i < 32; i++ {
		inputs = append(inputs, inventory.MovementInput{ProductID: ids[i%len(ids)], Kind: inventory.KindPurchase, Quantity: 2})
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rig.ledger.RecordBatch(ctx, inputs, inventory.BatchOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
