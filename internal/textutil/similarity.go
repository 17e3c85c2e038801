package textutil

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// NormalizeTitle lowercases a title, spells out ampersands, and reduces every
// run of non-alphanumeric characters to a single space.
func NormalizeTitle(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "&", " and ")
	var b strings.Builder
	b.Grow(len(value))
	pendingSpace := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		if r == '\'' || r == '’' {
			// Apostrophes join ("Ocean's" matches "Oceans").
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Similarity scores two titles in [0,1]. Identical titles after
// normalization score 1; titles with nothing in common approach 0.
func Similarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	score := EditSimilarity(na, nb)
	if cos := CosineSimilarity(NewFingerprint(na), NewFingerprint(nb)); cos > score {
		score = cos
	}
	if score > 1 {
		score = 1
	}
	return score
}

// EditSimilarity is one minus the unit-cost edit distance divided by the
// longer input length.
func EditSimilarity(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	distance := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1 - float64(distance)/float64(longest)
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
