package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tidyfin/internal/identification/tmdb"
)

// FakeCatalog is an in-memory tmdb.Catalog. Searches match on the lowercased
// query; titles listed in Block wait for the context to end, which is how
// tests simulate timeouts.
type FakeCatalog struct {
	Movies   map[string][]tmdb.Result
	Shows    map[string][]tmdb.Result
	Episodes map[string]tmdb.Episode
	Block    map[string]bool
	// SearchErr, EpisodeErr and PingErr are returned verbatim when set.
	SearchErr  error
	EpisodeErr error
	PingErr    error

	mu    sync.Mutex
	calls map[string]int
}

var _ tmdb.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Movies:   map[string][]tmdb.Result{},
		Shows:    map[string][]tmdb.Result{},
		Episodes: map[string]tmdb.Episode{},
		Block:    map[string]bool{},
		calls:    map[string]int{},
	}
}

// AddMovie registers a movie result for query.
func (f *FakeCatalog) AddMovie(query string, id int64, title, releaseDate string) {
	key := strings.ToLower(query)
	f.Movies[key] = append(f.Movies[key], tmdb.Result{ID: id, Title: title, ReleaseDate: releaseDate, PosterPath: fmt.Sprintf("/poster-%d.jpg", id)})
}

// AddShow registers a show result for query.
func (f *FakeCatalog) AddShow(query string, id int64, name, firstAirDate string) {
	key := strings.ToLower(query)
	f.Shows[key] = append(f.Shows[key], tmdb.Result{ID: id, Name: name, FirstAirDate: firstAirDate})
}

// AddEpisode registers an episode title.
func (f *FakeCatalog) AddEpisode(showID int64, season, episode int, name string) {
	f.Episodes[episodeKey(showID, season, episode)] = tmdb.Episode{Name: name, SeasonNumber: season, EpisodeNumber: episode}
}

// Calls returns how often operation ("movie", "tv", "episode", "ping") ran.
func (f *FakeCatalog) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

func (f *FakeCatalog) record(operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[operation]++
}

func (f *FakeCatalog) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	f.record("movie")
	return f.search(ctx, f.Movies, query, opts)
}

func (f *FakeCatalog) SearchTV(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	f.record("tv")
	return f.search(ctx, f.Shows, query, opts)
}

func (f *FakeCatalog) search(ctx context.Context, index map[string][]tmdb.Result, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if f.Block[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	var results []tmdb.Result
	for _, res := range index[key] {
		if opts.Year > 0 && res.Year() != opts.Year {
			continue
		}
		results = append(results, res)
	}
	return &tmdb.Response{Page: 1, Results: results, TotalResults: len(results)}, nil
}

func (f *FakeCatalog) GetEpisode(_ context.Context, showID int64, season, episode int) (*tmdb.Episode, error) {
	f.record("episode")
	if f.EpisodeErr != nil {
		return nil, f.EpisodeErr
	}
	ep, ok := f.Episodes[episodeKey(showID, season, episode)]
	if !ok {
		return nil, &tmdb.StatusError{Operation: "episode details", StatusCode: 404}
	}
	return &ep, nil
}

func (f *FakeCatalog) Ping(context.Context) error {
	f.record("ping")
	return f.PingErr
}

func episodeKey(showID int64, season, episode int) string {
	return fmt.Sprintf("%d/%d/%d", showID, season, episode)
}
