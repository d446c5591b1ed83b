// Package db owns the process-wide relational store handle.
//
// Both supported engines are reached through database/sql: the embedded
// SQLite file (default, single process) and PostgreSQL (multi-process).
// Queries are written with '?' placeholders and rebound per dialect.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config describes how to open the store.
type Config struct {
	Driver       Dialect
	DSN          string
	MaxOpenConns int
	MaxRetries   int
	BusyTimeout  time.Duration
}

// DB is the shared store handle. Construct it once with Open and pass it to repositories.
type DB struct {
	sql        *sql.DB
	dialect    Dialect
	maxRetries int
}

// Querier is implemented by both DB and Tx.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	Dialect() Dialect
}

// Open connects to the store and fails fast if it is not reachable.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("platform/db: dsn is required")
	}
	var driverName, dsn string
	switch cfg.Driver {
	case SQLite, "":
		cfg.Driver = SQLite
		driverName = "sqlite"
		dsn = sqliteDSN(cfg.DSN, cfg.BusyTimeout)
	case Postgres:
		driverName = "pgx"
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("platform/db: unsupported driver %q", cfg.Driver)
	}

	handle, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == SQLite {
		if maxOpen <= 0 {
			maxOpen = 1
		}
		// An in-memory database lives as long as its connection.
		handle.SetConnMaxLifetime(0)
		handle.SetConnMaxIdleTime(0)
		handle.SetMaxIdleConns(maxOpen)
	} else {
		if maxOpen <= 0 {
			maxOpen = 10
		}
		handle.SetMaxIdleConns(maxOpen / 2)
		handle.SetConnMaxLifetime(30 * time.Minute)
	}
	handle.SetMaxOpenConns(maxOpen)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &DB{sql: handle, dialect: cfg.Driver, maxRetries: retries}, nil
}

func sqliteDSN(dsn string, busy time.Duration) string {
	if busy <= 0 {
		busy = 5 * time.Second
	}
	params := []string{}
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()))
	}
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "memory") && !strings.Contains(dsn, "journal_mode") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Dialect reports the engine behind the handle.
func (d *DB) Dialect() Dialect { return d.dialect }

// Exec runs a statement outside any transaction.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

// Query runs a query outside any transaction.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

// QueryRow runs a single-row query outside any transaction.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

// Ping checks the store is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Close releases every pooled connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// SQL exposes the underlying pool for tooling that needs it directly.
func (d *DB) SQL() *sql.DB { return d.sql }
