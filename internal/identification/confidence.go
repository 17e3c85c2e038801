package identification

import (
	"errors"
	"fmt"
	"math"
)

// Tier buckets a confidence score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Rank orders tiers from Low (0) to High (2).
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}

// ScoringPolicy holds the fusion weights and tier thresholds.
type ScoringPolicy struct {
	// ParseWeight and MatchWeight combine the two inputs when a catalog
	// candidate was accepted.
	ParseWeight float64 `json:"parse_weight"`
	MatchWeight float64 `json:"match_weight"`
	// UnmatchedWeight scales parse confidence when no candidate exists.
	UnmatchedWeight float64 `json:"unmatched_weight"`
	HighThreshold   float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`
}

// DefaultScoringPolicy returns 0.4/0.6 fusion, 0.3 without a candidate, and
// tiers at 0.80 and 0.50.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		ParseWeight:     0.4,
		MatchWeight:     0.6,
		UnmatchedWeight: 0.3,
		HighThreshold:   0.8,
		MediumThreshold: 0.5,
	}
}

// Validate rejects policies that could rank an unmatched guess High, produce
// scores outside [0,1], or decrease when an input increases.
func (p ScoringPolicy) Validate() error {
	if p.ParseWeight < 0 || p.MatchWeight < 0 || p.UnmatchedWeight < 0 {
		return errors.New("scoring weights must not be negative")
	}
	if p.ParseWeight+p.MatchWeight > 1+1e-9 {
		return fmt.Errorf("parse_weight + match_weight must not exceed 1, got %.2f", p.ParseWeight+p.MatchWeight)
	}
	if p.MediumThreshold <= 0 || p.HighThreshold <= p.MediumThreshold || p.HighThreshold > 1 {
		return errors.New("tier thresholds must satisfy 0 < medium < high <= 1")
	}
	if p.UnmatchedWeight >= p.HighThreshold {
		return errors.New("unmatched_weight must stay below high_threshold")
	}
	return nil
}

// ValidateAcceptance rejects a policy under which accepting a candidate
// scoring minAccept could rank lower than having no candidate at all. The
// worst case is a parse confidence of 1.
func (p ScoringPolicy) ValidateAcceptance(minAccept float64) error {
	if p.MatchWeight*minAccept+1e-9 < p.UnmatchedWeight-p.ParseWeight {
		return fmt.Errorf("match_weight * min_accept_score (%.2f) must be at least unmatched_weight - parse_weight (%.2f)",
			p.MatchWeight*minAccept, p.UnmatchedWeight-p.ParseWeight)
	}
	return nil
}

// Score fuses parse confidence and match score. Both inputs are clamped to
// [0,1]; the result is rounded to four decimals so tier boundaries are stable.
func (p ScoringPolicy) Score(parseConfidence, matchScore float64, hasCandidate bool) (float64, Tier) {
	parseConfidence = clamp01(parseConfidence)
	var score float64
	if hasCandidate {
		score = p.ParseWeight*parseConfidence + p.MatchWeight*clamp01(matchScore)
	} else {
		score = p.UnmatchedWeight * parseConfidence
	}
	score = math.Round(clamp01(score)*1e4) / 1e4
	return score, p.TierFor(score)
}

// TierFor maps a score to its tier.
func (p ScoringPolicy) TierFor(score float64) Tier {
	switch {
	case score >= p.HighThreshold:
		return TierHigh
	case score >= p.MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Score applies DefaultScoringPolicy.
func Score(parseConfidence, matchScore float64, hasCandidate bool) (float64, Tier) {
	return DefaultScoringPolicy().Score(parseConfidence, matchScore, hasCandidate)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
