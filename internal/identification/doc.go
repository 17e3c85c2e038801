// Package identification turns a noisy video filename into a scored catalog
// match.
//
// ParseFilename extracts a title, year, and season/episode markers from the
// name alone. Classify decides whether the guess describes a movie, an episode,
// or nothing usable. A Matcher then queries TMDB through a throttled, cached
// search layer, ranks the candidates by title similarity and year agreement,
// and fuses the parse and match evidence into a confidence tier with the
// configured ScoringPolicy.
//
// Lookup failures never escape Match: they are recorded on the MatchResult and
// lower its confidence. Only a rejected API key is treated as fatal, and
// callers should surface it once through Verify before a batch starts.
package identification
