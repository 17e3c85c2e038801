package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tidyfin/internal/config"
	"tidyfin/internal/logging"
)

type globalFlags struct {
	configPath  string
	source      string
	movies      string
	shows       string
	review      string
	apiKey      string
	noTMDB      bool
	noRecursive bool
	concurrency int
	quiet       bool
	logLevel    string
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// applyOverrides layers command-line flags over the loaded file.
func (c *commandContext) applyOverrides(cfg *config.Config) error {
	f := c.flags
	dirs := []struct {
		flag   string
		target *string
	}{
		{f.source, &cfg.Paths.SourceDir},
		{f.movies, &cfg.Paths.MoviesDir},
		{f.shows, &cfg.Paths.ShowsDir},
		{f.review, &cfg.Paths.ReviewDir},
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir.flag) == "" {
			continue
		}
		expanded, err := config.ExpandPath(dir.flag)
		if err != nil {
			return err
		}
		*dir.target = expanded
	}
	if key := strings.TrimSpace(f.apiKey); key != "" {
		cfg.TMDB.APIKey = key
	}
	if f.noRecursive {
		cfg.Organizer.Recursive = false
	}
	if f.concurrency != 0 {
		cfg.Organizer.Concurrency = f.concurrency
	}
	if level := strings.ToLower(strings.TrimSpace(f.logLevel)); level != "" {
		cfg.Logging.Level = level
	}
	if f.quiet {
		cfg.Logging.Level = "error"
	}
	return nil
}

// newLogger writes logs to the command's stderr so stdout stays parseable.
func (c *commandContext) newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	w := cmd.ErrOrStderr()
	return logging.NewFromConfig(cfg, w, shouldColorize(w))
}

func (c *commandContext) catalogEnabled() bool {
	return !c.flags.noTMDB
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
