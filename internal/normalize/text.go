// Package normalize maps inconsistent supplier vocabularies onto the
// canonical product schema.
//
// Every function here is pure and total: bad input degrades to the raw
// value or a sentinel instead of an error, and callers decide whether the
// degradation deserves a warning.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses runs of whitespace.
// "Crème  Brûlée" becomes "creme brulee".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Title title-cases s word by word after collapsing whitespace.
func Title(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Title(language.English).String(strings.ToLower(s))
}

// compactKey reduces s to its lowercase letters and digits, so that
// "X-Large", "x large" and "XLARGE" compare equal.
func compactKey(s string) string {
	var b strings.Builder
	for _, r := range Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// alnumUpper keeps only ASCII letters and digits of s, uppercased.
func alnumUpper(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(Fold(s)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
