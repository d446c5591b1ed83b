package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/shared"
)

type memoryProduct struct {
	state     StockState
	threshold int64
	active    bool
}

type memoryRepo struct {
	mu        sync.Mutex
	products  map[string]*memoryProduct
	movements []Movement
	// failUpdate aborts UpdateStock for the listed product to exercise rollback.
	failUpdate map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[string]*memoryProduct{}, failUpdate: map[string]bool{}}
}

func (r *memoryRepo) addProduct(id, sku string, qty int64) {
	r.products[id] = &memoryProduct{
		state:     StockState{ProductID: id, SKU: sku, Name: sku, StockQty: qty, OpeningQty: qty},
		threshold: 10,
		active:    true,
	}
}

// memoryTx buffers writes and applies them on commit.
type memoryTx struct {
	repo      *memoryRepo
	states    map[string]StockState
	movements []Movement
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{repo: r, states: map[string]StockState{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, st := range tx.states {
		r.products[id].state = st
	}
	r.movements = append(r.movements, tx.movements...)
	return nil
}

func (t *memoryTx) LockProduct(_ context.Context, id string) (StockState, error) {
	if st, ok := t.states[id]; ok {
		return st, nil
	}
	p, ok := t.repo.products[id]
	if !ok {
		return StockState{}, shared.NewNotFoundError("product", id)
	}
	return p.state, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m Movement) error {
	t.movements = append(t.movements, m)
	return nil
}

func (t *memoryTx) UpdateStock(ctx context.Context, id string, qty, seq int64) error {
	if t.repo.failUpdate[id] {
		return shared.NewStorageError("update stock", errors.New("disk full"))
	}
	st, err := t.LockProduct(ctx, id)
	if err != nil {
		return err
	}
	st.StockQty = qty
	st.Sequence = seq
	t.states[id] = st
	return nil
}

func (r *memoryRepo) History(_ context.Context, id string, limit int) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Movement{}
	for i := len(r.movements) - 1; i >= 0; i-- {
		if r.movements[i].ProductID == id {
			out = append(out, r.movements[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) Ledger(_ context.Context, id string) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Movement{}
	for _, m := range r.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) LoadState(_ context.Context, id string) (StockState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return StockState{}, shared.NewNotFoundError("product", id)
	}
	return p.state, nil
}

func (r *memoryRepo) ProductIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryRepo) LowStock(context.Context) ([]Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alerts := []Alert{}
	for _, p := range r.products {
		if p.state.Deleted || !p.active || p.state.StockQty > p.threshold {
			continue
		}
		alerts = append(alerts, Alert{ProductID: p.state.ProductID, SKU: p.state.SKU, StockQty: p.state.StockQty,
			Threshold: p.threshold, OutOfStock: p.state.StockQty <= 0})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ProductID < alerts[j].ProductID })
	return alerts, nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newTestService(repo RepositoryPort, cfg ServiceConfig, opts ...ServiceOption) *Service {
	svc := NewService(repo, cfg, nil, opts...)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	var tick int
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc
}

func TestRecordMovementAppliesDeltaAndSequence(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 0)
	audit := &memoryAudit{}
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true}, WithAudit(audit))
	ctx := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: "u1", BusinessID: "b1"})

	m1, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindOpeningStock, Quantity: 50})
	require.NoError(t, err)
	require.Equal(t, int64(0), m1.QuantityBefore)
	require.Equal(t, int64(50), m1.QuantityAfter)
	require.Equal(t, int64(1), m1.Sequence)
	require.Equal(t, "u1", *m1.CreatedBy)
	require.Equal(t, "b1", *m1.BusinessID)

	m2, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -12, Note: " walk-in "})
	require.NoError(t, err)
	require.Equal(t, int64(50), m2.QuantityBefore)
	require.Equal(t, int64(38), m2.QuantityAfter)
	require.Equal(t, int64(2), m2.Sequence)
	require.Equal(t, "walk-in", m2.Note)

	require.Equal(t, int64(38), repo.products["p1"].state.StockQty)
	require.Len(t, audit.logs, 2)
	require.Equal(t, "stock.movement", audit.logs[1].Action)
}

func TestRecordMovementSignRules(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 5)
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()

	cases := []struct {
		kind MovementKind
		qty  int64
		ok   bool
	}{
		{KindSale, -1, true},
		{KindSale, 0, false},
		{KindSale, 3, false},
		{KindPurchase, 4, true},
		{KindPurchase, -4, false},
		{KindReturn, 0, false},
		{KindOpeningStock, 1, true},
		{KindAdjustment, -2, true},
		{KindAdjustment, 0, true},
		{KindAdjustment, 7, true},
		{MovementKind("gift"), 1, false},
	}
	for _, tc := range cases {
		_, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: tc.kind, Quantity: tc.qty})
		if tc.ok {
			require.NoError(t, err, "%s %d", tc.kind, tc.qty)
			continue
		}
		require.ErrorIs(t, err, shared.ErrValidation, "%s %d", tc.kind, tc.qty)
	}
}

func TestZeroAdjustmentIsRecordedWithoutChangingStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 5)
	svc := newTestService(repo, ServiceConfig{})

	m, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: "p1", Kind: KindAdjustment, Quantity: 0, Note: "count"})
	require.NoError(t, err)
	require.Equal(t, m.QuantityBefore, m.QuantityAfter)
	require.Equal(t, int64(5), repo.products["p1"].state.StockQty)
	require.Len(t, repo.movements, 1)
}

func TestNegativeStockPolicy(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 2)

	strict := newTestService(repo, ServiceConfig{AllowNegativeStock: false})
	_, err := strict.RecordMovement(context.Background(), MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -3})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.ErrorIs(t, err, ErrNegativeStock)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "quantity")
	require.Empty(t, repo.movements)

	lenient := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	m, err := lenient.RecordMovement(context.Background(), MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -3})
	require.NoError(t, err)
	require.Equal(t, int64(-1), m.QuantityAfter)
}

func TestRecordMovementUnknownAndDeletedProduct(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("gone", "OLD", 4)
	repo.products["gone"].state.Deleted = true
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: "missing", Kind: KindPurchase, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.RecordMovement(context.Background(), MovementInput{ProductID: "gone", Kind: KindPurchase, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.movements)
}

func TestFailedUpdateLeavesNoMovement(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	repo.failUpdate["p1"] = true
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -1})
	require.ErrorIs(t, err, shared.ErrStorage)
	require.Empty(t, repo.movements)
	require.Equal(t, int64(10), repo.products["p1"].state.StockQty)
}

func TestIdempotencyKeyRejectsReplayAndIsReleasedOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	idem := &memoryIdempotency{keys: map[string]bool{}}
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: false}, WithIdempotency(idem))
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -1, IdempotencyKey: "k1"})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -1, IdempotencyKey: "k1"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.movements, 1)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -50, IdempotencyKey: "k2"})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.False(t, idem.keys["k2"])
}

func TestConcurrentMovementsOnOneProductSerialize(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 100)
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := MovementInput{ProductID: "p1", Kind: KindPurchase, Quantity: 2}
			if i%2 == 0 {
				in = MovementInput{ProductID: "p1", Kind: KindSale, Quantity: -1}
			}
			_, err := svc.RecordMovement(context.Background(), in)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(120), repo.products["p1"].state.StockQty)
	report, err := svc.Verify(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, report.Consistent, report.Problems)
	require.Equal(t, 40, report.Movements)
}

func TestRecordBatchIndependentRows(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	repo.addProduct("p2", "INK", 10)
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true, BatchConcurrency: 2})

	results, err := svc.RecordBatch(context.Background(), []MovementInput{
		{ProductID: "p1", Kind: KindSale, Quantity: -1},
		{ProductID: "p2", Kind: KindSale, Quantity: 5},
		{ProductID: "p1", Kind: KindPurchase, Quantity: 4},
		{ProductID: "missing", Kind: KindPurchase, Quantity: 1},
	}, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.NotNil(t, results[0].Movement)
	require.ErrorIs(t, results[1].Err, shared.ErrValidation)
	require.NotNil(t, results[2].Movement)
	require.Equal(t, int64(9), results[2].Movement.QuantityBefore)
	require.ErrorIs(t, results[3].Err, shared.ErrNotFound)

	require.Equal(t, int64(13), repo.products["p1"].state.StockQty)
	require.Equal(t, int64(10), repo.products["p2"].state.StockQty)
}

func TestRecordBatchAtomicRollsBackEveryRow(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	repo.addProduct("p2", "INK", 10)
	repo.failUpdate["p2"] = true
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	results, err := svc.RecordBatch(context.Background(), []MovementInput{
		{ProductID: "p1", Kind: KindSale, Quantity: -1},
		{ProductID: "p2", Kind: KindSale, Quantity: -1},
	}, BatchOptions{Atomic: true})
	require.ErrorIs(t, err, shared.ErrStorage)
	require.Contains(t, err.Error(), "row 1")
	require.Nil(t, results)
	require.Empty(t, repo.movements)
	require.Equal(t, int64(10), repo.products["p1"].state.StockQty)

	delete(repo.failUpdate, "p2")
	results, err = svc.RecordBatch(context.Background(), []MovementInput{
		{ProductID: "p2", Kind: KindSale, Quantity: -1},
		{ProductID: "p1", Kind: KindSale, Quantity: -1},
		{ProductID: "p2", Kind: KindSale, Quantity: -2},
	}, BatchOptions{Atomic: true})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, int64(9), results[2].Movement.QuantityBefore)
	require.Equal(t, int64(7), repo.products["p2"].state.StockQty)
}

func TestRecordBatchAtomicValidatesBeforeWriting(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 10)
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.RecordBatch(context.Background(), []MovementInput{
		{ProductID: "p1", Kind: KindSale, Quantity: -1},
		{ProductID: "p1", Kind: KindPurchase, Quantity: -1},
	}, BatchOptions{Atomic: true})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Error(), "row 1")
	require.Empty(t, repo.movements)
}

func TestGetHistoryNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 0)
	svc := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()

	empty, err := svc.GetHistory(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, q := range []int64{5, 6, 7} {
		_, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p1", Kind: KindPurchase, Quantity: q})
		require.NoError(t, err)
	}
	history, err := svc.GetHistory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, []int64{3, 2, 1}, []int64{history[0].Sequence, history[1].Sequence, history[2].Sequence})

	unknown, err := svc.GetHistory(ctx, "nope")
	require.NoError(t, err)
	require.NotNil(t, unknown)
	require.Empty(t, unknown)
}

func TestFoldDetectsBrokenChain(t *testing.T) {
	state := StockState{ProductID: "p1", OpeningQty: 10, StockQty: 12, Sequence: 2}
	movements := []Movement{
		{ID: "m1", Sequence: 1, Quantity: 5, QuantityBefore: 10, QuantityAfter: 15},
		{ID: "m2", Sequence: 2, Quantity: -3, QuantityBefore: 15, QuantityAfter: 12},
	}
	report := Fold(state, movements)
	require.True(t, report.Consistent)
	require.Equal(t, int64(12), report.FoldedQty)

	state.StockQty = 20
	movements[1].QuantityBefore = 14
	report = Fold(state, movements)
	require.False(t, report.Consistent)
	require.Len(t, report.Problems, 3)
}

func TestVerifyAllCoversEveryProduct(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 3)
	repo.addProduct("p2", "INK", 4)
	repo.products["p2"].state.StockQty = 9
	svc := newTestService(repo, ServiceConfig{})

	reports, err := svc.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.True(t, reports[0].Consistent)
	require.False(t, reports[1].Consistent)
}

func TestLowStockWithoutCacheReadsRepository(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("p1", "PEN", 0)
	repo.addProduct("p2", "INK", 50)
	repo.addProduct("p3", "CAP", 10)
	repo.products["p3"].active = false
	svc := newTestService(repo, ServiceConfig{})

	alerts, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "p1", alerts[0].ProductID)
	require.True(t, alerts[0].OutOfStock)
}
