package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics, so "OGÓŁEM" and "ogolem" compare
// equal. The stroke in ł does not decompose and is mapped explicitly.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.ReplaceAll(out, "ł", "l")
}

// ContainsFold reports whether s contains any of subs after folding both.
func ContainsFold(s string, subs ...string) bool {
	fs := Fold(s)
	for _, sub := range subs {
		if strings.Contains(fs, Fold(sub)) {
			return true
		}
	}
	return false
}

// Title upper-cases the first letter of every word using Polish casing rules.
func Title(s string) string {
	return cases.Title(language.Polish).String(strings.ToLower(s))
}

// CollapseSpaces replaces runs of whitespace with a single space and trims.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
