package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
	"github.com/ledgerly/ledgerly/internal/testing/dbtest"
)

func TestCategoriesOrderedByNameCaseInsensitive(t *testing.T) {
	svc := NewService(NewRepository(dbtest.Open(t)), nil, nil)
	ctx := context.Background()
	for _, name := range []string{"stationery", "Beverages", "apparel", "Snacks"} {
		_, err := svc.Create(ctx, CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, shared.ListFilters{})
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"apparel", "Beverages", "Snacks", "stationery"}, names)

	got, err = svc.List(ctx, shared.ListFilters{Search: "SNA"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Snacks", got[0].Name)
}

func TestCategoriesOrderFoldsNonASCIINames(t *testing.T) {
	svc := NewService(NewRepository(dbtest.Open(t)), nil, nil)
	ctx := context.Background()
	for _, name := range []string{"Ölfarben", "Zucker", "öko"} {
		_, err := svc.Create(ctx, CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, shared.ListFilters{})
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"Zucker", "öko", "Ölfarben"}, names)

	got, err = svc.List(ctx, shared.ListFilters{Search: "ÖKO"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "öko", got[0].Name)
}

func TestCategoryLifecycle(t *testing.T) {
	svc := NewService(NewRepository(dbtest.Open(t)), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCategoryRequest{})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	c, err := svc.Create(ctx, CreateCategoryRequest{Name: "Pens"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, c.ID, UpdateCategoryRequest{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, "Pens", updated.Name)

	active := true
	got, err := svc.List(ctx, shared.ListFilters{IsActive: &active})
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, svc.Delete(ctx, c.ID))
	require.NoError(t, svc.Delete(ctx, c.ID))
	_, found, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, found)

	ref, err := svc.Resolve(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ref.Historical)

	_, err = svc.Update(ctx, c.ID, UpdateCategoryRequest{IsActive: &active})
	require.ErrorIs(t, err, internalShared.ErrNotFound)
}
