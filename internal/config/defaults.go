package config

const (
	defaultConfigPath        = "~/.config/tidyfin/config.toml"
	projectConfigName        = "tidyfin.toml"
	defaultStateDir          = "~/.local/share/tidyfin"
	defaultTMDBLanguage      = "en-US"
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL  = "https://image.tmdb.org/t/p/w500"
	defaultTMDBTimeout       = 10
	defaultRequestsPerSecond = 4.0
	defaultConcurrency       = 4
	defaultMinAcceptScore    = 0.5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	maxConcurrency           = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			TimeoutSeconds:    defaultTMDBTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Organizer: Organizer{
			Concurrency:    defaultConcurrency,
			Recursive:      true,
			MinAcceptScore: defaultMinAcceptScore,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
