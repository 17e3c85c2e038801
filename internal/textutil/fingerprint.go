package textutil

import (
	"math"
	"strings"
)

// stopTokens carry no identifying weight in a title.
var stopTokens = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
	"and": {},
	"of":  {},
}

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize normalizes text and splits it into tokens, dropping stop words.
func Tokenize(text string) []string {
	fields := strings.Fields(NormalizeTitle(text))
	terms := make([]string, 0, len(fields))
	for _, token := range fields {
		if _, stop := stopTokens[token]; stop {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
