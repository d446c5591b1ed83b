package shared

import (
	"strings"

	"github.com/ledgerly/ledgerly/internal/platform/db"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

// Where accumulates AND-combined conditions with '?' placeholders.
type Where struct {
	clauses []string
	args    []any
}

// Live starts a condition set that excludes soft-deleted rows.
func Live() *Where {
	return &Where{clauses: []string{"deleted_at IS NULL"}}
}

// Add appends a condition and its arguments.
func (w *Where) Add(clause string, args ...any) *Where {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
	return w
}

// Search appends a case-insensitive substring match OR-combined across columns.
func (w *Where) Search(term string, columns ...string) *Where {
	if strings.TrimSpace(term) == "" || len(columns) == 0 {
		return w
	}
	pattern := internalShared.LikePattern(term)
	ors := make([]string, 0, len(columns))
	for _, col := range columns {
		ors = append(ors, db.Fold("COALESCE("+col+", '')")+" LIKE ? ESCAPE '\\'")
		w.args = append(w.args, pattern)
	}
	w.clauses = append(w.clauses, "("+strings.Join(ors, " OR ")+")")
	return w
}

// Apply adds the common filters. Columns are only consulted when the filter is present.
func (w *Where) Apply(f ListFilters, searchColumns ...string) *Where {
	w.Search(f.Search, searchColumns...)
	if f.CategoryID != nil {
		w.Add("category_id = ?", *f.CategoryID)
	}
	if f.SupplierID != nil {
		w.Add("supplier_id = ?", *f.SupplierID)
	}
	if f.IsActive != nil {
		w.Add("is_active = ?", *f.IsActive)
	}
	return w
}

// SQL renders the WHERE clause.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the accumulated arguments in placeholder order.
func (w *Where) Args() []any { return w.args }
