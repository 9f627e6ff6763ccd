// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name trims a display name, keeping its case.
func Name(s string) string { return strings.TrimSpace(s) }

// NameCI is the folded form of a name used for case-insensitive sorting
// and search.
func NameCI(s string) string { return text.Fold(strings.TrimSpace(s)) }

// Role trims and lowercases a role.
func Role(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Code trims and uppercases a course or department code ("cse101" -> "CSE101").
func Code(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Enum trims and lowercases an enum value such as a term, status or category.
func Enum(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// QueryParam trims a query parameter, keeping its case.
func QueryParam(s string) string { return strings.TrimSpace(s) }

// FilterID normalizes a filter id from a query string. "all" means no filter.
func FilterID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
