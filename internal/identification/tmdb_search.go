package identification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tidyfin/internal/identification/tmdb"
)

// LookupObserver receives one call per catalog request actually sent.
type LookupObserver interface {
	ObserveLookup(operation, outcome string, elapsed time.Duration)
}

type searchMode string

const (
	searchModeMovie   searchMode = "movie"
	searchModeTV      searchMode = "tv"
	searchModeEpisode searchMode = "episode"
)

// tmdbSearch throttles, deduplicates, and caches catalog calls for the
// lifetime of one Matcher. Errors are never cached.
type tmdbSearch struct {
	client   tmdb.Catalog
	limiter  *rate.Limiter
	timeout  time.Duration
	observer LookupObserver
	group    singleflight.Group

	mu       sync.Mutex
	results  map[string]*tmdb.Response
	episodes map[string]*tmdb.Episode
}

func newTMDBSearch(client tmdb.Catalog, requestsPerSecond float64, timeout time.Duration, observer LookupObserver) *tmdbSearch {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &tmdbSearch{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  timeout,
		observer: observer,
		results:  make(map[string]*tmdb.Response),
		episodes: make(map[string]*tmdb.Episode),
	}
}

func (s *tmdbSearch) search(ctx context.Context, title string, opts tmdb.SearchOptions, mode searchMode) (*tmdb.Response, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("tmdb client unavailable")
	}
	key := fmt.Sprintf("%s|%s|%s", mode, strings.ToLower(strings.TrimSpace(title)), opts.CacheKey())

	s.mu.Lock()
	if resp, ok := s.results[key]; ok {
		s.mu.Unlock()
		return resp, nil
	}
	s.mu.Unlock()

	value, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		cached, ok := s.results[key]
		s.mu.Unlock()
		if ok {
			return cached, nil
		}
		var resp *tmdb.Response
		err := s.call(ctx, string(mode), func(callCtx context.Context) error {
			var err error
			if mode == searchModeTV {
				resp, err = s.client.SearchTV(callCtx, title, opts)
			} else {
				resp, err = s.client.SearchMovie(callCtx, title, opts)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, fmt.Errorf("%w: empty %s search payload", tmdb.ErrMalformedResponse, mode)
		}
		s.mu.Lock()
		s.results[key] = resp
		s.mu.Unlock()
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*tmdb.Response), nil
}

func (s *tmdbSearch) episode(ctx context.Context, showID int64, season, episode int) (*tmdb.Episode, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("tmdb client unavailable")
	}
	key := fmt.Sprintf("%s|%d|%d|%d", searchModeEpisode, showID, season, episode)

	s.mu.Lock()
	if ep, ok := s.episodes[key]; ok {
		s.mu.Unlock()
		return ep, nil
	}
	s.mu.Unlock()

	value, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		cached, ok := s.episodes[key]
		s.mu.Unlock()
		if ok {
			return cached, nil
		}
		var ep *tmdb.Episode
		err := s.call(ctx, string(searchModeEpisode), func(callCtx context.Context) error {
			var err error
			ep, err = s.client.GetEpisode(callCtx, showID, season, episode)
			return err
		})
		if err != nil {
			return nil, err
		}
		if ep == nil {
			return nil, fmt.Errorf("%w: empty episode payload", tmdb.ErrMalformedResponse)
		}
		s.mu.Lock()
		s.episodes[key] = ep
		s.mu.Unlock()
		return ep, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*tmdb.Episode), nil
}

// call waits for a limiter token and runs fn under the per-request timeout.
func (s *tmdbSearch) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	err := fn(callCtx)
	if s.observer != nil {
		s.observer.ObserveLookup(operation, lookupOutcome(err), time.Since(started))
	}
	return err
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, tmdb.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, tmdb.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, tmdb.ErrNotFound):
		return "not_found"
	case errors.Is(err, tmdb.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
