// Package config loads, normalizes, and validates tidyfin's TOML configuration.
//
// Load merges a file found at an explicit path, ~/.config/tidyfin/config.toml,
// or ./tidyfin.toml over Default(), expands ~ in every path, and falls back to
// TMDB_API_KEY for the catalog credential. Library roots are checked separately
// with ValidateRoots after command-line overrides are applied.
package config
