package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormKey normalizes a string for comparison: trimmed, inner whitespace
// collapsed, diacritics stripped, lower-cased. "EN REVISIÓN" and
// "en revision" normalize to the same key.
func NormKey(s string) string {
	s = strings.TrimSpace(s)
	s = spaceRe.ReplaceAllString(s, " ")

	// NFKD decomposition, then drop the combining marks.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.ToLower(s)
}
