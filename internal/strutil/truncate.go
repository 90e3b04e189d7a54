// Package strutil provides small string helpers shared by the ai and server packages.
package strutil

import "strings"

// Truncate shortens s to at most maxLen runes, appending an ellipsis when
// content was cut. Rune-level slicing keeps multi-byte characters intact.
// Returns empty string if maxLen <= 0 to prevent slice bounds panic.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Tokenize lower-cases s and splits it on whitespace and commas, dropping
// empty fields. Used for destination and preference matching.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ','
	})
}

// TokenSet builds a membership set from Tokenize(s).
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
