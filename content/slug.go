package content

import (
	"strings"
	"unicode"
)

// Slugify converts a title to a URL-safe slug. Characters other than
// ASCII letters, digits, spaces and dashes are dropped, so "Don't stop"
// becomes "dont-stop"; runs of spaces and dashes collapse to one dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		case r == ' ', r == '-':
			dash = true
		}
	}
	return b.String()
}

// NormalizeSlug is the looser rule used for categories and tags:
// lower-case, trimmed, runs of whitespace replaced by one dash.
func NormalizeSlug(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), "-")
}
