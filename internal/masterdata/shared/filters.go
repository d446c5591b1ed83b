package shared

import "strings"

// ListFilters represents the recognised list filters. Absent options are nil or empty.
type ListFilters struct {
	Search     string
	CategoryID *string
	SupplierID *string
	IsActive   *bool
}

// Reference is a weak-reference lookup result. Historical marks a soft-deleted row.
type Reference struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Historical bool   `json:"historical"`
}

// BlankToNil trims v and maps an empty result to nil.
func BlankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
