package domain

import "strings"

// NormalizeSymbol trims surrounding whitespace and upper-cases a ticker as
// typed by a user. It returns "" when nothing but whitespace was given.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
