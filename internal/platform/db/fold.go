package db

import (
	"database/sql/driver"

	"modernc.org/sqlite"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// FoldFunc is the SQL function that case-folds text exactly like shared.FoldCase.
// SQLite's built-in LOWER only handles ASCII, so the embedded store gets the Go
// implementation; Bootstrap defines it on Postgres.
const FoldFunc = "ledgerly_fold"

// Fold wraps a column expression in FoldFunc.
func Fold(expr string) string {
	return FoldFunc + "(" + expr + ")"
}

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldFunc, 1, foldValue)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return shared.FoldCase(v), nil
	case []byte:
		return shared.FoldCase(string(v)), nil
	default:
		return v, nil
	}
}
