package scoring

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize is the single comparison form for free-text answers: Unicode
// NFC, surrounding whitespace trimmed, internal whitespace runs collapsed
// to one space, then case-folded. Punctuation and diacritics are kept.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(s)
}
