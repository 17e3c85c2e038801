package identification_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"tidyfin/internal/identification"
	"tidyfin/internal/identification/tmdb"
	"tidyfin/internal/logging"
	"tidyfin/internal/services"
	"tidyfin/internal/testsupport"
)

const imageBase = "https://image.tmdb.org/t/p/w500"

func newTestMatcher(t *testing.T, catalog tmdb.Catalog, mutate ...func(*identification.MatcherOptions)) *identification.Matcher {
	t.Helper()
	opts := identification.MatcherOptions{
		RequestsPerSecond: -1,
		LookupTimeout:     time.Second,
		ImageBaseURL:      imageBase,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	matcher, err := identification.NewMatcher(catalog, opts, logging.NewNop())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return matcher
}

func matchFile(t *testing.T, matcher *identification.Matcher, name string) identification.MatchResult {
	t.Helper()
	guess := identification.ParseFilename(name)
	return matcher.Match(context.Background(), guess, identification.Classify(guess))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatchMovie(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("The Matrix", 603, "The Matrix", "1999-03-31")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "The.Matrix.1999.1080p.BluRay.mkv")
	if result.LookupErr != nil {
		t.Fatalf("unexpected lookup error: %v", result.LookupErr)
	}
	if result.Candidate == nil {
		t.Fatal("expected candidate")
	}
	if result.Candidate.CatalogID != 603 || result.Candidate.Title != "The Matrix" {
		t.Fatalf("unexpected candidate %+v", result.Candidate)
	}
	if result.Candidate.Year == nil || *result.Candidate.Year != 1999 {
		t.Fatalf("expected year 1999, got %v", result.Candidate.Year)
	}
	if result.Candidate.PosterURL != imageBase+"/poster-603.jpg" {
		t.Fatalf("unexpected poster url %q", result.Candidate.PosterURL)
	}
	if !approx(result.MatchScore, 1) || !approx(result.ConfidenceScore, 0.9) || result.Tier != identification.TierHigh {
		t.Fatalf("unexpected scores: match=%v confidence=%v tier=%s", result.MatchScore, result.ConfidenceScore, result.Tier)
	}
}

func TestMatchEpisode(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddShow("Breaking Bad", 1396, "Breaking Bad", "2008-01-20")
	catalog.AddEpisode(1396, 1, 1, "Pilot")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "Breaking.Bad.S01E01.Pilot.mkv")
	if result.Candidate == nil {
		t.Fatal("expected candidate")
	}
	c := result.Candidate
	if c.CatalogID != 1396 || c.Title != "Breaking Bad" || *c.Season != 1 || *c.Episode != 1 || c.EpisodeTitle != "Pilot" {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if !approx(result.MatchScore, 0.8) || !approx(result.ConfidenceScore, 0.84) || result.Tier != identification.TierHigh {
		t.Fatalf("unexpected scores: match=%v confidence=%v tier=%s", result.MatchScore, result.ConfidenceScore, result.Tier)
	}
	if catalog.Calls("episode") != 1 {
		t.Fatalf("expected one episode lookup, got %d", catalog.Calls("episode"))
	}
}

func TestMatchEpisodeLookupFailureKeepsShow(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddShow("Breaking Bad", 1396, "Breaking Bad", "2008-01-20")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "Breaking.Bad.S01E01.Pilot.mkv")
	if result.LookupErr != nil {
		t.Fatalf("episode failure should not surface as lookup error: %v", result.LookupErr)
	}
	if result.Candidate == nil || result.Candidate.CatalogID != 1396 {
		t.Fatalf("expected show match, got %+v", result.Candidate)
	}
	if result.Candidate.EpisodeTitle != "Pilot" {
		t.Fatalf("expected filename episode title, got %q", result.Candidate.EpisodeTitle)
	}
}

func TestMatchRetriesWithoutYear(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("Heat", 949, "Heat", "1995-12-15")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "Heat.1996.mkv")
	if result.Candidate == nil || result.Candidate.CatalogID != 949 {
		t.Fatalf("expected retry to find Heat, got %+v", result.Candidate)
	}
	if !approx(result.MatchScore, 0.9) {
		t.Fatalf("expected off-by-one year bonus, got %v", result.MatchScore)
	}
	if catalog.Calls("movie") != 2 {
		t.Fatalf("expected two searches, got %d", catalog.Calls("movie"))
	}
}

func TestMatchRejectsWeakCandidate(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("Inception", 12, "Finding Nemo", "2003-05-30")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "Inception.2010.mkv")
	if result.Candidate != nil {
		t.Fatalf("expected no candidate, got %+v", result.Candidate)
	}
	if result.LookupErr != nil {
		t.Fatalf("unexpected lookup error: %v", result.LookupErr)
	}
	if !approx(result.ConfidenceScore, 0.225) || result.Tier != identification.TierLow {
		t.Fatalf("unexpected scores: confidence=%v tier=%s", result.ConfidenceScore, result.Tier)
	}
}

func TestMatchPrefersEarlierResultOnTie(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("Crash", 1, "Crash", "2004-09-10")
	catalog.AddMovie("Crash", 2, "Crash", "2004-05-06")
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "Crash.2004.mkv")
	if result.Candidate == nil || result.Candidate.CatalogID != 1 {
		t.Fatalf("expected first result to win, got %+v", result.Candidate)
	}
}

func TestMatchTimeoutIsNotFatal(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.Block["slow movie"] = true
	matcher := newTestMatcher(t, catalog, func(o *identification.MatcherOptions) {
		o.LookupTimeout = 20 * time.Millisecond
	})

	result := matchFile(t, matcher, "Slow.Movie.2001.mkv")
	if !errors.Is(result.LookupErr, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", result.LookupErr)
	}
	if services.IsFatal(result.LookupErr) {
		t.Fatal("timeout must not be fatal")
	}
	if result.Candidate != nil || result.Tier != identification.TierLow {
		t.Fatalf("expected unmatched low result, got %+v", result)
	}
}

func TestMatchUnauthorizedIsFatal(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.SearchErr = &tmdb.StatusError{Operation: "search movie", StatusCode: 401}
	matcher := newTestMatcher(t, catalog)

	result := matchFile(t, matcher, "The.Matrix.1999.mkv")
	if !services.IsFatal(result.LookupErr) {
		t.Fatalf("expected fatal configuration error, got %v", result.LookupErr)
	}
	if result.LookupDetail() == "" {
		t.Fatal("expected lookup detail text")
	}
}

func TestMatchDoesNotCacheErrors(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("The Matrix", 603, "The Matrix", "1999-03-31")
	catalog.SearchErr = errors.New("connection reset")
	matcher := newTestMatcher(t, catalog)

	first := matchFile(t, matcher, "The.Matrix.1999.mkv")
	if !errors.Is(first.LookupErr, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", first.LookupErr)
	}
	catalog.SearchErr = nil
	second := matchFile(t, matcher, "The.Matrix.1999.mkv")
	if second.Candidate == nil {
		t.Fatalf("expected match after recovery, got %+v", second)
	}
	third := matchFile(t, matcher, "The.Matrix.1999.720p.mkv")
	if third.Candidate == nil {
		t.Fatal("expected cached match")
	}
	if catalog.Calls("movie") != 2 {
		t.Fatalf("expected failed and successful search only, got %d", catalog.Calls("movie"))
	}
}

func TestMatchDeduplicatesConcurrentSearches(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("The Matrix", 603, "The Matrix", "1999-03-31")
	matcher := newTestMatcher(t, catalog)

	var wg sync.WaitGroup
	results := make([]identification.MatchResult, 8)
	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = matchFile(t, matcher, "The.Matrix.1999.mkv")
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		if result.Candidate == nil || result.Candidate.CatalogID != 603 {
			t.Fatalf("result %d: unexpected candidate %+v", i, result.Candidate)
		}
	}
	if catalog.Calls("movie") != 1 {
		t.Fatalf("expected a single search, got %d", catalog.Calls("movie"))
	}
}

func TestMatchSkipsCatalogForUnknown(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	matcher := newTestMatcher(t, catalog)

	guess := identification.ParseFilename("[1080p].mkv")
	result := matcher.Match(context.Background(), guess, identification.Classify(guess))
	if result.Candidate != nil || result.ConfidenceScore != 0 || result.Tier != identification.TierLow {
		t.Fatalf("unexpected result %+v", result)
	}
	if catalog.Calls("movie")+catalog.Calls("tv") != 0 {
		t.Fatal("catalog must not be consulted for unknown guesses")
	}
}

func TestMatchTreatsEpisodeKindWithoutMarkersAsMovie(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddMovie("The Matrix", 603, "The Matrix", "1999-03-31")
	matcher := newTestMatcher(t, catalog)

	guess := identification.ParseFilename("The.Matrix.1999.mkv")
	result := matcher.Match(context.Background(), guess, identification.MediaTypeTVEpisode)
	if result.Candidate == nil || catalog.Calls("tv") != 0 {
		t.Fatalf("expected movie search, got %+v (tv calls %d)", result.Candidate, catalog.Calls("tv"))
	}
}

func TestMatchWithoutCatalog(t *testing.T) {
	matcher := newTestMatcher(t, nil)
	if matcher.CatalogEnabled() {
		t.Fatal("expected catalog disabled")
	}
	if err := matcher.Verify(context.Background()); err != nil {
		t.Fatalf("Verify without catalog: %v", err)
	}
	result := matchFile(t, matcher, "Breaking.Bad.S01E01.Pilot.mkv")
	if result.Candidate != nil || !approx(result.ConfidenceScore, 0.27) || result.Tier != identification.TierLow {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    error
	}{
		{"ok", nil, nil},
		{"rejected key", &tmdb.StatusError{Operation: "configuration", StatusCode: 401}, services.ErrConfiguration},
		{"unreachable", errors.New("dial tcp: refused"), services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := testsupport.NewFakeCatalog()
			catalog.PingErr = tt.pingErr
			err := newTestMatcher(t, catalog).Verify(context.Background())
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *recordingObserver) ObserveLookup(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[operation+"/"+outcome]++
}

func TestMatchReportsLookupsToObserver(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.AddShow("Breaking Bad", 1396, "Breaking Bad", "2008-01-20")
	observer := &recordingObserver{}
	matcher := newTestMatcher(t, catalog, func(o *identification.MatcherOptions) {
		o.Observer = observer
	})

	matchFile(t, matcher, "Breaking.Bad.S01E01.mkv")
	if observer.outcomes["tv/ok"] != 1 || observer.outcomes["episode/not_found"] != 1 {
		t.Fatalf("unexpected observations %v", observer.outcomes)
	}
}

func TestNewMatcherRejectsInvalidOptions(t *testing.T) {
	policy := identification.DefaultScoringPolicy()
	policy.UnmatchedWeight = 0.9
	if _, err := identification.NewMatcher(nil, identification.MatcherOptions{Policy: &policy}, logging.NewNop()); !services.IsFatal(err) {
		t.Fatalf("expected configuration error for policy, got %v", err)
	}
	inverted := identification.ScoringPolicy{ParseWeight: 0.1, MatchWeight: 0.2, UnmatchedWeight: 0.7, HighThreshold: 0.8, MediumThreshold: 0.5}
	if _, err := identification.NewMatcher(nil, identification.MatcherOptions{Policy: &inverted, MinAcceptScore: 0.5}, logging.NewNop()); !services.IsFatal(err) {
		t.Fatalf("expected configuration error when acceptance can lower the score, got %v", err)
	}
	if _, err := identification.NewMatcher(nil, identification.MatcherOptions{MinAcceptScore: 1.5}, logging.NewNop()); !services.IsFatal(err) {
		t.Fatalf("expected configuration error for threshold, got %v", err)
	}
}
