// Package tmdb provides the minimal TMDB API client used to match files
// against the catalog.
//
// It authenticates requests and exposes movie and TV search with optional
// year filters, single-episode lookups, and a configuration ping used to
// verify credentials. Responses are strongly typed and non-200 answers become
// *StatusError values that unwrap to ErrUnauthorized, ErrRateLimited, or
// ErrNotFound so callers can tell a bad key from a transient failure.
package tmdb
