package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tidyfin/internal/services"
)

// Validate ensures the configuration values are well formed.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateOrganizer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.TimeoutSeconds < 0 {
		return errors.New("tmdb.timeout_seconds must be positive")
	}
	if c.TMDB.RequestsPerSecond < 0 {
		return errors.New("tmdb.requests_per_second must be positive")
	}
	if !strings.HasPrefix(c.TMDB.BaseURL, "http://") && !strings.HasPrefix(c.TMDB.BaseURL, "https://") {
		return fmt.Errorf("tmdb.base_url must be an http(s) URL, got %q", c.TMDB.BaseURL)
	}
	return nil
}

func (c *Config) validateOrganizer() error {
	if c.Organizer.Concurrency < 1 || c.Organizer.Concurrency > maxConcurrency {
		return fmt.Errorf("organizer.concurrency must be between 1 and %d", maxConcurrency)
	}
	if c.Organizer.MinAcceptScore < 0 || c.Organizer.MinAcceptScore > 1 {
		return errors.New("organizer.min_accept_score must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// ValidateRoots checks everything a batch needs before it starts. The catalog
// key is only required when requireCatalog is true. Failures carry
// services.ErrConfiguration.
func (c *Config) ValidateRoots(requireCatalog bool) error {
	if err := requireDir("paths.source_dir", c.Paths.SourceDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.MoviesDir) == "" {
		return configError("paths.movies_dir is required")
	}
	if strings.TrimSpace(c.Paths.ShowsDir) == "" {
		return configError("paths.shows_dir is required")
	}
	for _, root := range []struct{ key, path string }{
		{"paths.movies_dir", c.Paths.MoviesDir},
		{"paths.shows_dir", c.Paths.ShowsDir},
		{"paths.review_dir", c.Paths.ReviewDir},
	} {
		if root.path == "" {
			continue
		}
		if within(c.Paths.SourceDir, root.path) && c.Organizer.Recursive {
			// Recursive scans would pick organized files up again.
			return configError(fmt.Sprintf("%s must not be inside paths.source_dir when scanning recursively", root.key))
		}
	}
	if requireCatalog && c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return configError(fmt.Sprintf("tmdb.api_key is required. Set TMDB_API_KEY, pass --api-key, or edit %s (create with 'tidyfin config init')", defaultPath))
	}
	return nil
}

func requireDir(key, path string) error {
	if strings.TrimSpace(path) == "" {
		return configError(key + " is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return configError(fmt.Sprintf("%s %q is not accessible: %v", key, path, err))
	}
	if !info.IsDir() {
		return configError(fmt.Sprintf("%s %q is not a directory", key, path))
	}
	return nil
}

func within(parent, child string) bool {
	if parent == "" || child == "" {
		return false
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func configError(message string) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", message, nil)
}
