package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// ErrNoRows is returned by QueryRow scans that match nothing.
var ErrNoRows = sql.ErrNoRows

// Classify converts a driver error into the shared error taxonomy. Errors that
// already belong to it, and context cancellation, pass through untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.IsTaxonomy(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case IsUniqueViolation(err):
		return &shared.ValidationError{Message: "duplicate value violates a uniqueness constraint", Fields: uniqueFields(err)}
	case isConflict(err):
		return fmt.Errorf("%s: %w: %v", op, shared.ErrConcurrencyConflict, err)
	default:
		return shared.NewStorageError(op, err)
	}
}

// IsUniqueViolation reports whether err is a unique or primary key violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected, lock_not_available
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "55P03"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		primary := liteErr.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}

// uniqueFields guesses the offending column from the driver message.
func uniqueFields(err error) map[string]string {
	var column string
	var pgErr *pgconn.PgError
	var liteErr *sqlite.Error
	switch {
	case errors.As(err, &pgErr):
		column = pgErr.ConstraintName
		if pgErr.ColumnName != "" {
			column = pgErr.ColumnName
		}
	case errors.As(err, &liteErr):
		// "UNIQUE constraint failed: products.sku"
		msg := liteErr.Error()
		if i := strings.LastIndex(msg, "."); i >= 0 {
			column, _, _ = strings.Cut(msg[i+1:], " ")
		}
	}
	column = strings.TrimSpace(column)
	for _, known := range []string{"sku", "number", "key"} {
		if strings.Contains(column, known) {
			return map[string]string{known: "already exists"}
		}
	}
	if column == "" {
		return nil
	}
	return map[string]string{column: "already exists"}
}
