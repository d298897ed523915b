// Package naming provides identifier helpers shared by the profiler,
// the relationship detector and the dimensional modeler.
package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize converts a raw header or file stem into a lower snake_case
// identifier: diacritics are stripped, runs of non-alphanumerics become "_".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	lastUnderscore := true
	prevLower := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// camelCase boundary
			if unicode.IsUpper(r) && prevLower && !lastUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			prevLower = false
		}
	}
	return strings.Trim(b.String(), "_")
}

// Singular returns the singular form of a snake_case name.
// Only the last word is inflected: "order_items" -> "order_item".
func Singular(name string) string {
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		return name[:i+1] + inflection.Singular(name[i+1:])
	}
	return inflection.Singular(name)
}

// EntityNames returns the names a table can be referred to by in key
// columns: the table name itself and its singular form.
func EntityNames(table string) []string {
	s := Singular(table)
	if s == table {
		return []string{table}
	}
	return []string{table, s}
}

// KeyPrefix returns the part of a key column before its "_id" suffix.
func KeyPrefix(column string) (string, bool) {
	if !strings.HasSuffix(column, "_id") || len(column) <= len("_id") {
		return "", false
	}
	return strings.TrimSuffix(column, "_id"), true
}

// IsKeyLike reports whether a column name looks like a key.
func IsKeyLike(column string) bool {
	if column == "id" {
		return true
	}
	for _, suffix := range []string{"_id", "_key", "_code", "_ref"} {
		if strings.HasSuffix(column, suffix) && len(column) > len(suffix) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether name contains any of the tokens as a
// snake_case word or word prefix ("total_amount" contains "amount").
func ContainsAny(name string, tokens []string) bool {
	words := strings.Split(name, "_")
	for _, tok := range tokens {
		for _, w := range words {
			if w == tok || inflection.Singular(w) == tok {
				return true
			}
		}
	}
	return false
}

// Levenshtein returns the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// KeyStem strips any key-like suffix ("_id", "_key", "_code", "_ref").
func KeyStem(column string) string {
	for _, suffix := range []string{"_id", "_key", "_code", "_ref"} {
		if strings.HasSuffix(column, suffix) && len(column) > len(suffix) {
			return strings.TrimSuffix(column, suffix)
		}
	}
	return column
}
