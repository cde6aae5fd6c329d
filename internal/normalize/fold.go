// Package normalize folds user and record text into a comparable form.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics, so "Olá" and "ola" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsAny reports whether any of words occurs in the already-folded text.
// Multi-word phrases match as substrings; single words must match a whole token.
func ContainsAny(folded string, words []string) bool {
	tokens := Tokens(folded)
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(folded, w) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// Tokens splits folded text on anything that is not a letter or digit.
func Tokens(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$'
	})
}
