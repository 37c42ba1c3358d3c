package entity

import "strings"

// NormalizeLine builds the canonical lookup key for one fingerprint line:
// words joined by single spaces, lower-cased, trimmed.
func NormalizeLine(words []string) string {
	return strings.ToLower(strings.TrimSpace(strings.Join(words, " ")))
}

// JoinWords keeps the original casing, for the human-readable raw lines.
func JoinWords(words []string) string {
	return strings.TrimSpace(strings.Join(words, " "))
}
