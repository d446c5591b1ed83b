package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/shared"
	"github.com/ledgerly/ledgerly/internal/testing/dbtest"
)

func seedAudit(t *testing.T) *Service {
	t.Helper()
	store := dbtest.Open(t)
	logger := shared.NewAuditLogger(store)
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []shared.AuditLog{
		{ActorID: "u1", Action: "product.created", Entity: "product", EntityID: "p1", At: base},
		{ActorID: "u1", Action: "stock.movement", Entity: "product", EntityID: "p1", Meta: map[string]any{"kind": "sale"}, At: base.Add(time.Hour)},
		{ActorID: "u2", Action: "invoice.created", Entity: "invoice", EntityID: "i1", At: base.Add(2 * time.Hour)},
		{ActorID: "u2", Action: "stock.movement", Entity: "product", EntityID: "p2", At: base.Add(48 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, logger.Record(context.Background(), e))
	}
	return NewService(NewRepository(store))
}

func TestTimelineNewestFirstWithPaging(t *testing.T) {
	svc := seedAudit(t)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, "p2", result.Rows[0].EntityID)
	require.Equal(t, "invoice.created", result.Rows[1].Action)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, "product.created", result.Rows[0].Action)
}

func TestTimelineFilters(t *testing.T) {
	svc := seedAudit(t)
	ctx := context.Background()

	result, err := svc.Timeline(ctx, TimelineFilters{Entity: "product", EntityID: "p1"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, "sale", result.Rows[0].Meta["kind"])

	result, err = svc.Timeline(ctx, TimelineFilters{Actor: "u2", Action: "stock.movement"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rows, err := svc.Export(ctx, TimelineFilters{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	rows, err = svc.Export(ctx, TimelineFilters{Actor: "nobody"})
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestTimelineRejectsInvertedRange(t *testing.T) {
	svc := seedAudit(t)
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.Timeline(context.Background(), TimelineFilters{From: day, To: day.Add(-time.Hour)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

type stubRepo struct{ last Window }

func (s *stubRepo) Timeline(_ context.Context, w Window) ([]TimelineRow, error) {
	s.last = w
	return nil, nil
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 1000})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)
	require.Equal(t, maxPageSize+1, repo.last.Limit)
	require.Equal(t, 2*maxPageSize, repo.last.Offset)
	require.NotNil(t, result.Rows)
}
