// Package pipeline contains the three asynchronous stage workers and the
// pure rules they apply: participant name validation, numeric hour parsing
// and category hour calculation.
package pipeline

import (
	"strings"
	"unicode"
)

// NormalizeName lowercases a name, strips punctuation and collapses runs of
// whitespace. Accented letters are kept as-is; accent differences are real
// differences. Normalizing twice yields the same result.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NamesMatch decides whether the participant name extracted from a
// certificate belongs to the registered student. Exact normalized equality
// matches; otherwise the names match when they share at least two tokens, or
// share one token longer than three characters. Short shared tokens alone
// (particles like "de", "da") never match.
func NamesMatch(extracted, registered string) bool {
	en := NormalizeName(extracted)
	rn := NormalizeName(registered)
	if en == "" || rn == "" {
		return false
	}
	if en == rn {
		return true
	}

	registeredTokens := make(map[string]bool)
	for _, tok := range strings.Fields(rn) {
		registeredTokens[tok] = true
	}

	shared := 0
	longShared := false
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(en) {
		if seen[tok] || !registeredTokens[tok] {
			continue
		}
		seen[tok] = true
		shared++
		if len([]rune(tok)) > 3 {
			longShared = true
		}
	}

	return shared >= 2 || (shared == 1 && longShared)
}
