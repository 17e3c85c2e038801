package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tidyfin/internal/identification/tmdb"
	"tidyfin/internal/logging"
	"tidyfin/internal/services"
	"tidyfin/internal/textutil"
)

const (
	defaultMinAcceptScore = 0.5
	defaultMaxCandidates  = 5
	defaultLookupTimeout  = 10 * time.Second
	defaultRequestsPerSec = 4.0

	similarityWeight = 0.8
	exactYearBonus   = 0.2
	nearYearBonus    = 0.1
)

// Candidate is a catalog record reduced to what naming and review need.
type Candidate struct {
	CatalogID    int64  `json:"catalog_id"`
	Title        string `json:"title"`
	Year         *int   `json:"year,omitempty"`
	Season       *int   `json:"season,omitempty"`
	Episode      *int   `json:"episode,omitempty"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	PosterURL    string `json:"poster_url,omitempty"`
}

// MatchResult is the outcome of matching one guess.
type MatchResult struct {
	Candidate       *Candidate `json:"candidate,omitempty"`
	MatchScore      float64    `json:"match_score"`
	ConfidenceScore float64    `json:"confidence_score"`
	Tier            Tier       `json:"confidence_tier"`
	// LookupErr records why the catalog could not be consulted. It never
	// aborts the batch unless it carries services.ErrConfiguration.
	LookupErr error `json:"-"`
}

// LookupDetail returns LookupErr as text, or "" when the lookup succeeded.
func (r MatchResult) LookupDetail() string {
	if r.LookupErr == nil {
		return ""
	}
	return r.LookupErr.Error()
}

// MatcherOptions configures a Matcher. Zero values select defaults.
type MatcherOptions struct {
	MinAcceptScore    float64
	MaxCandidates     int
	RequestsPerSecond float64
	LookupTimeout     time.Duration
	ImageBaseURL      string
	Policy            *ScoringPolicy
	Observer          LookupObserver
}

// Matcher resolves guesses against the catalog. It is safe for concurrent use
// and caches search results for its own lifetime, so build one per batch.
type Matcher struct {
	search         *tmdbSearch
	enabled        bool
	policy         ScoringPolicy
	minAcceptScore float64
	maxCandidates  int
	imageBaseURL   string
	logger         *slog.Logger
}

// NewMatcher builds a Matcher. A nil catalog yields a filename-only matcher
// whose results never carry a candidate.
func NewMatcher(catalog tmdb.Catalog, opts MatcherOptions, logger *slog.Logger) (*Matcher, error) {
	policy := DefaultScoringPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "scoring policy", "invalid scoring policy", err)
	}
	minAccept := opts.MinAcceptScore
	if minAccept <= 0 {
		minAccept = defaultMinAcceptScore
	}
	if minAccept > 1 {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "matcher", fmt.Sprintf("min accept score %.2f exceeds 1", minAccept), nil)
	}
	if err := policy.ValidateAcceptance(minAccept); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "identification", "scoring policy", "invalid scoring policy", err)
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	rps := opts.RequestsPerSecond
	if rps == 0 {
		rps = defaultRequestsPerSec
	}
	return &Matcher{
		search:         newTMDBSearch(catalog, rps, timeout, opts.Observer),
		enabled:        catalog != nil,
		policy:         policy,
		minAcceptScore: minAccept,
		maxCandidates:  maxCandidates,
		imageBaseURL:   strings.TrimRight(strings.TrimSpace(opts.ImageBaseURL), "/"),
		logger:         logging.NewComponentLogger(logger, "matcher"),
	}, nil
}

// CatalogEnabled reports whether Match consults the catalog at all.
func (m *Matcher) CatalogEnabled() bool {
	return m.enabled
}

// Policy returns the scoring policy in effect.
func (m *Matcher) Policy() ScoringPolicy {
	return m.policy
}

// Verify checks catalog credentials once before a batch. A rejected key is
// reported as services.ErrConfiguration; other failures are transient and the
// batch may proceed with degraded matching.
func (m *Matcher) Verify(ctx context.Context) error {
	if !m.enabled {
		return nil
	}
	err := m.search.call(ctx, "ping", m.search.client.Ping)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tmdb.ErrUnauthorized):
		return services.Wrap(services.ErrConfiguration, "identification", "verify credentials", "TMDB rejected the API key", err)
	default:
		return services.Wrap(services.ErrTransient, "identification", "verify credentials", "TMDB is unreachable", err)
	}
}

// Match finds the best catalog candidate for guess and scores the result.
// Unknown guesses and catalog failures produce a result without a candidate.
func (m *Matcher) Match(ctx context.Context, guess ParsedGuess, kind MediaType) MatchResult {
	logger := logging.WithContext(ctx, m.logger)
	if kind == MediaTypeUnknown || strings.TrimSpace(guess.Title) == "" || !m.enabled {
		return m.unmatched(guess, nil)
	}
	if kind == MediaTypeTVEpisode && !guess.HasEpisode() {
		kind = MediaTypeMovie
	}

	var (
		best *Candidate
		err  error
		top  float64
	)
	switch kind {
	case MediaTypeTVEpisode:
		best, top, err = m.matchEpisode(ctx, logger, guess)
	default:
		best, top, err = m.matchMovie(ctx, logger, guess)
	}
	if err != nil {
		lookupErr := classifyLookupError(err, kind)
		logging.WarnWithContext(logger, "catalog lookup failed",
			"catalog_lookup_failed",
			logging.String("title", guess.Title),
			logging.String("media_type", kind.String()),
			logging.Error(lookupErr),
			logging.String(logging.FieldErrorHint, lookupHint(err)),
		)
		return m.unmatched(guess, lookupErr)
	}
	if best == nil {
		return m.unmatched(guess, nil)
	}

	score, tier := m.policy.Score(guess.ParseConfidence, top, true)
	return MatchResult{
		Candidate:       best,
		MatchScore:      top,
		ConfidenceScore: score,
		Tier:            tier,
	}
}

func (m *Matcher) unmatched(guess ParsedGuess, lookupErr error) MatchResult {
	score, tier := m.policy.Score(guess.ParseConfidence, 0, false)
	return MatchResult{
		ConfidenceScore: score,
		Tier:            tier,
		LookupErr:       lookupErr,
	}
}

func (m *Matcher) matchMovie(ctx context.Context, logger *slog.Logger, guess ParsedGuess) (*Candidate, float64, error) {
	resp, err := m.search.search(ctx, guess.Title, tmdb.SearchOptions{Year: guess.YearValue()}, searchModeMovie)
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Results) == 0 && guess.Year != nil {
		// The release year in a filename is sometimes a regional date.
		resp, err = m.search.search(ctx, guess.Title, tmdb.SearchOptions{}, searchModeMovie)
		if err != nil {
			return nil, 0, err
		}
	}
	result, score := m.selectBest(logger, guess, resp)
	if result == nil {
		return nil, 0, nil
	}
	return m.candidateFrom(*result), score, nil
}

func (m *Matcher) matchEpisode(ctx context.Context, logger *slog.Logger, guess ParsedGuess) (*Candidate, float64, error) {
	resp, err := m.search.search(ctx, guess.Title, tmdb.SearchOptions{Year: guess.YearValue()}, searchModeTV)
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Results) == 0 && guess.Year != nil {
		resp, err = m.search.search(ctx, guess.Title, tmdb.SearchOptions{}, searchModeTV)
		if err != nil {
			return nil, 0, err
		}
	}
	result, score := m.selectBest(logger, guess, resp)
	if result == nil {
		return nil, 0, nil
	}

	candidate := m.candidateFrom(*result)
	season, episode := *guess.Season, *guess.Episode
	candidate.Season = &season
	candidate.Episode = &episode

	ep, err := m.search.episode(ctx, result.ID, season, episode)
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "episode lookup failed; keeping show match",
			"episode_lookup_failed",
			logging.Int64("show_id", result.ID),
			logging.Int("season", season),
			logging.Int("episode", episode),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode title taken from filename when available"),
		)
	case strings.TrimSpace(ep.Name) != "":
		candidate.EpisodeTitle = strings.TrimSpace(ep.Name)
	}
	if candidate.EpisodeTitle == "" {
		candidate.EpisodeTitle = guess.EpisodeTitle
	}
	return candidate, score, nil
}

// selectBest ranks at most maxCandidates results and returns the best one at
// or above the acceptance threshold. Earlier results win ties because the
// catalog orders them by relevance.
func (m *Matcher) selectBest(logger *slog.Logger, guess ParsedGuess, response *tmdb.Response) (*tmdb.Result, float64) {
	if response == nil || len(response.Results) == 0 {
		logger.Debug("catalog returned no results", logging.String("query", guess.Title))
		return nil, 0
	}
	var (
		best      *tmdb.Result
		bestScore = -1.0
	)
	limit := min(len(response.Results), m.maxCandidates)
	for idx := 0; idx < limit; idx++ {
		res := response.Results[idx]
		title := res.DisplayTitle()
		if res.ID <= 0 || title == "" {
			continue
		}
		score := scoreCandidate(guess, title, res.Year())
		logger.Debug("scored catalog candidate",
			logging.Int("result_index", idx),
			logging.Int64("tmdb_id", res.ID),
			logging.String("title", title),
			logging.Int("year", res.Year()),
			logging.Float64("score", score))
		if score > bestScore {
			best = &response.Results[idx]
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0
	}
	if bestScore < m.minAcceptScore {
		logger.Info("catalog candidate rejected",
			logging.Args(append(logging.DecisionAttrs("catalog_match", "rejected", "score below acceptance threshold"),
				logging.String("query", guess.Title),
				logging.String("best_title", best.DisplayTitle()),
				logging.Float64("best_score", bestScore),
				logging.Float64("threshold", m.minAcceptScore))...)...)
		return nil, 0
	}
	logger.Info("catalog candidate selected",
		logging.Args(append(logging.DecisionAttrs("catalog_match", "accepted", "best score above acceptance threshold"),
			logging.String("query", guess.Title),
			logging.Int64("tmdb_id", best.ID),
			logging.String("title", best.DisplayTitle()),
			logging.Float64("score", bestScore))...)...)
	return best, bestScore
}

// scoreCandidate weighs title similarity and year agreement into [0,1].
func scoreCandidate(guess ParsedGuess, title string, year int) float64 {
	score := similarityWeight * textutil.Similarity(guess.Title, title)
	score += yearBonus(guess.YearValue(), year)
	return clamp01(score)
}

func yearBonus(guessYear, candidateYear int) float64 {
	if guessYear <= 0 || candidateYear <= 0 {
		return 0
	}
	switch diff := guessYear - candidateYear; {
	case diff == 0:
		return exactYearBonus
	case diff == 1 || diff == -1:
		return nearYearBonus
	default:
		return 0
	}
}

func (m *Matcher) candidateFrom(res tmdb.Result) *Candidate {
	candidate := &Candidate{
		CatalogID: res.ID,
		Title:     res.DisplayTitle(),
	}
	if year := res.Year(); year > 0 {
		candidate.Year = &year
	}
	if poster := strings.TrimSpace(res.PosterPath); poster != "" && m.imageBaseURL != "" {
		candidate.PosterURL = m.imageBaseURL + "/" + strings.TrimLeft(poster, "/")
	}
	return candidate
}

func classifyLookupError(err error, kind MediaType) error {
	op := "search " + kind.String()
	switch {
	case errors.Is(err, tmdb.ErrUnauthorized):
		return services.Wrap(services.ErrConfiguration, "identification", op, "TMDB rejected the API key", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "identification", op, "catalog lookup timed out", err)
	case errors.Is(err, tmdb.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "identification", op, "catalog resource not found", err)
	case errors.Is(err, tmdb.ErrMalformedResponse):
		return services.Wrap(services.ErrValidation, "identification", op, "catalog response could not be parsed", err)
	case errors.Is(err, tmdb.ErrRateLimited):
		return services.Wrap(services.ErrTransient, "identification", op, "catalog rate limit reached", err)
	default:
		return services.Wrap(services.ErrTransient, "identification", op, "catalog lookup failed", err)
	}
}

func lookupHint(err error) string {
	switch {
	case errors.Is(err, tmdb.ErrUnauthorized):
		return "check tmdb.api_key or TMDB_API_KEY"
	case errors.Is(err, tmdb.ErrRateLimited):
		return "lower tmdb.requests_per_second"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise tmdb.timeout_seconds or retry later"
	default:
		return "retry the preview once TMDB is reachable"
	}
}
