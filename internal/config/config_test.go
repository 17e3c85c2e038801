package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tidyfin/internal/config"
	"tidyfin/internal/services"
	"tidyfin/internal/testsupport"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "tidyfin", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".local", "share", "tidyfin"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Organizer.Concurrency != 4 || !cfg.Organizer.Recursive || cfg.Organizer.MinAcceptScore != 0.5 {
		t.Fatalf("unexpected organizer defaults: %+v", cfg.Organizer)
	}
	if cfg.TMDB.RequestsPerSecond != 4 || cfg.TMDB.TimeoutSeconds != 10 {
		t.Fatalf("unexpected tmdb defaults: %+v", cfg.TMDB)
	}
	if cfg.JournalPath() != filepath.Join(cfg.Paths.StateDir, "journal.db") {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
source_dir = "~/incoming"
movies_dir = "/srv/movies"
shows_dir = "/srv/tv"

[tmdb]
api_key = "file-key"
base_url = "https://example.test/3/"

[organizer]
concurrency = 8
recursive = false

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.SourceDir != filepath.Join(tempHome, "incoming") {
		t.Fatalf("unexpected source dir: %q", cfg.Paths.SourceDir)
	}
	if cfg.Paths.MoviesDir != "/srv/movies" || cfg.Paths.ShowsDir != "/srv/tv" {
		t.Fatalf("unexpected library roots: %+v", cfg.Paths)
	}
	if cfg.TMDB.APIKey != "file-key" || cfg.TMDB.BaseURL != "https://example.test/3" {
		t.Fatalf("unexpected tmdb section: %+v", cfg.TMDB)
	}
	if cfg.Organizer.Concurrency != 8 || cfg.Organizer.Recursive {
		t.Fatalf("unexpected organizer section: %+v", cfg.Organizer)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{"concurrency", "[organizer]\nconcurrency = -1\n", "organizer.concurrency"},
		{"min score", "[organizer]\nmin_accept_score = 1.5\n", "organizer.min_accept_score"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"log level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"base url", "[tmdb]\nbase_url = \"ftp://x\"\n", "tmdb.base_url"},
		{"unknown key", "[paths]\nlibrary_dir = \"/x\"\n", "library_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Fatalf("expected %q in error, got %v", tt.wantKey, err)
			}
		})
	}
}

func TestValidateRoots(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "in")
	if err := os.Mkdir(source, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	base := config.Default()
	base.Paths.SourceDir = source
	base.Paths.MoviesDir = filepath.Join(root, "movies")
	base.Paths.ShowsDir = filepath.Join(root, "shows")
	base.TMDB.APIKey = "key"

	if err := base.ValidateRoots(true); err != nil {
		t.Fatalf("expected valid roots, got %v", err)
	}

	missingKey := base
	missingKey.TMDB.APIKey = ""
	if err := missingKey.ValidateRoots(false); err != nil {
		t.Fatalf("key not required without catalog: %v", err)
	}
	err := missingKey.ValidateRoots(true)
	if err == nil || !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("expected configuration error naming tmdb.api_key, got %v", err)
	}

	noSource := base
	noSource.Paths.SourceDir = filepath.Join(root, "missing")
	if err := noSource.ValidateRoots(true); err == nil || !strings.Contains(err.Error(), "paths.source_dir") {
		t.Fatalf("expected source error, got %v", err)
	}

	nested := base
	nested.Paths.MoviesDir = filepath.Join(source, "movies")
	if err := nested.ValidateRoots(true); err == nil || !strings.Contains(err.Error(), "paths.movies_dir") {
		t.Fatalf("expected nested root error, got %v", err)
	}
	nested.Organizer.Recursive = false
	if err := nested.ValidateRoots(true); err != nil {
		t.Fatalf("nested roots are fine without recursion: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample should load: %v", err)
	}
}

func TestValidateRootsWithTestConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBKey(""))

	if err := cfg.ValidateRoots(false); err != nil {
		t.Fatalf("filename-only roots should validate: %v", err)
	}
	if err := cfg.ValidateRoots(true); !services.IsFatal(err) {
		t.Fatalf("expected fatal error without a key, got %v", err)
	}

	cfg.Paths.ReviewDir = filepath.Join(cfg.Paths.SourceDir, "_review")
	if err := cfg.ValidateRoots(false); err == nil || !strings.Contains(err.Error(), "paths.review_dir") {
		t.Fatalf("expected review dir inside source to fail, got %v", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if got := filepath.Dir(cfg.JournalPath()); got != filepath.Join(testsupport.BaseDir(cfg), "state") {
		t.Fatalf("journal dir = %q", got)
	}
	if _, err := os.Stat(cfg.Paths.StateDir); err != nil {
		t.Fatalf("state dir not created: %v", err)
	}
}
