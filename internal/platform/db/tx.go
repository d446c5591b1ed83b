package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// Tx is a transaction bound to the handle's dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// Dialect reports the engine behind the transaction.
func (t *Tx) Dialect() Dialect { return t.dialect }

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// Query runs a query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// WithTx executes fn within a transaction using the RepeatableRead isolation level on
// PostgreSQL and an IMMEDIATE transaction on SQLite. Concurrency conflicts are retried
// with a fresh transaction; fn must therefore re-read everything it depends on.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := d.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(uint(d.maxRetries)),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		return shared.NewStorageError(fmt.Sprintf("transaction after %d attempts", attempt), err)
	}
	return err
}

func (d *DB) runTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	var opts *sql.TxOptions
	if d.dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	sqlTx, err := d.sql.BeginTx(ctx, opts)
	if err != nil {
		return Classify("begin tx", err)
	}

	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(ctx, &Tx{tx: sqlTx, dialect: d.dialect}); err != nil {
		return Classify("tx", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return Classify("commit tx", err)
	}
	return nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}
