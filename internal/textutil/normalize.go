// Package textutil provides comparison normalization for bibliographic
// text fields. Titles, series names, and publishers arrive from sources
// with inconsistent accents, casing, and spacing; normalization makes
// equality checks meaningful across sources.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers the text, strips combining accent marks, and collapses
// runs of whitespace to single spaces. Returns "" for empty input.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(stripAccents, text)
	if err != nil {
		stripped = text
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// EqualFold reports whether two values compare equal after Normalize.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// ContainsFold reports whether either normalized value contains the other.
// Used by album grouping where one source lists "Asterix le Gaulois" and
// another just "Le Gaulois".
func ContainsFold(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
