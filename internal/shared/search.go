package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldCase lowercases s with Unicode rules for case-insensitive matching. The store
// exposes the same mapping to SQL as ledgerly_fold, so both sides of a comparison agree.
func FoldCase(s string) string {
	// A Caser keeps state and is not safe for concurrent use.
	return cases.Lower(language.Und).String(s)
}

// LikePattern turns a search term into a LIKE pattern matching it as a literal substring.
// The pattern must be used with ESCAPE '\' against a folded column.
func LikePattern(term string) string {
	folded := FoldCase(strings.TrimSpace(term))
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(folded) + "%"
}
