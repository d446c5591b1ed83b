// Package dbtest opens throwaway SQLite stores for package tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/ledgerly/internal/platform/db"
	_ "github.com/ledgerly/ledgerly/internal/testing/guard"
)

var counter atomic.Int64

// Open returns a bootstrapped in-memory store private to the calling test.
func Open(t testing.TB) *db.DB {
	t.Helper()
	name := fmt.Sprintf("file:ledgerly_test_%d?mode=memory&cache=private", counter.Add(1))
	store, err := db.Open(context.Background(), db.Config{Driver: db.SQLite, DSN: name, MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, store.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}
