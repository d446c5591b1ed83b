package shared

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ledgerly/ledgerly/internal/platform/httpx"
)

// ParseFilters reads the recognised list filters from the query string.
func ParseFilters(r *http.Request) (ListFilters, error) {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search")}
	if v := q.Get("category_id"); v != "" {
		filters.CategoryID = &v
	}
	if v := q.Get("supplier_id"); v != "" {
		filters.SupplierID = &v
	}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return ListFilters{}, fmt.Errorf("%w: is_active must be a boolean", httpx.ErrBadRequest)
		}
		filters.IsActive = &active
	}
	return filters, nil
}
