package search

import (
	"regexp"
	"strings"
)

// tokenPattern matches runs of letters or digits in any script, so Hangul
// and Latin text tokenize the same way.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lowercases text and splits it into unicode word tokens.
// Punctuation and symbols separate tokens and are never part of one.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// TermFrequencies counts token occurrences.
func TermFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return freq
}
