package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tidyfin/internal/config"
	"tidyfin/internal/fileutil"
	"tidyfin/internal/identification"
	"tidyfin/internal/identification/tmdb"
	"tidyfin/internal/journal"
	"tidyfin/internal/logging"
	"tidyfin/internal/metrics"
	"tidyfin/internal/organizer"
	"tidyfin/internal/services"
)

// pipeline bundles everything one invocation needs to plan or organize.
type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *organizer.Engine
	journal  *journal.Journal
	registry *prometheus.Registry
}

// openPipeline validates the roots and builds the matcher and engine. The
// journal is only opened when withJournal is true.
func (c *commandContext) openPipeline(cmd *cobra.Command, withJournal bool) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRoots(c.catalogEnabled()); err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	var catalog tmdb.Catalog
	if c.catalogEnabled() {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
			tmdb.WithTimeout(time.Duration(cfg.TMDB.TimeoutSeconds)*time.Second))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "cli", "tmdb client", "invalid catalog settings", err)
		}
		catalog = client
	} else {
		logger.Info("catalog lookups disabled; every file will be routed to review",
			logging.String(logging.FieldEventType, "catalog_disabled"))
	}

	matcher, err := identification.NewMatcher(catalog, identification.MatcherOptions{
		MinAcceptScore:    cfg.Organizer.MinAcceptScore,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		LookupTimeout:     time.Duration(cfg.TMDB.TimeoutSeconds) * time.Second,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		Observer:          collector,
	}, logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg, logger: logger, registry: registry}

	var recorder organizer.Recorder
	if withJournal {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "cli", "open journal", cfg.JournalPath(), err)
		}
		p.journal = j
		recorder = j
	}

	engine, err := organizer.NewEngine(matcher, organizer.EngineOptions{
		Roots: organizer.Roots{
			Movies: cfg.Paths.MoviesDir,
			Shows:  cfg.Paths.ShowsDir,
			Review: cfg.Paths.ReviewDir,
		},
		Concurrency: cfg.Organizer.Concurrency,
		LockPath:    cfg.LockPath(),
		Recorder:    recorder,
		Observer:    collector,
	}, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.engine = engine
	return p, nil
}

// scan lists the video files under the configured source directory.
func (p *pipeline) scan() ([]string, error) {
	paths, err := fileutil.ListVideoFiles(p.cfg.Paths.SourceDir, p.cfg.Organizer.Recursive)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "cli", "scan", p.cfg.Paths.SourceDir, err)
	}
	p.logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.String("source_dir", p.cfg.Paths.SourceDir),
		logging.Bool("recursive", p.cfg.Organizer.Recursive),
		logging.Int("files", len(paths)),
	)
	return paths, nil
}

// plan scans and plans in one step.
func (p *pipeline) plan(ctx context.Context) (*organizer.Plan, error) {
	paths, err := p.scan()
	if err != nil {
		return nil, err
	}
	return p.engine.Plan(ctx, paths)
}

// Close writes the metrics textfile, when configured, and closes the journal.
func (p *pipeline) Close() {
	if p == nil {
		return
	}
	if err := metrics.WriteTextfile(p.cfg.Metrics.Textfile, p.registry); err != nil {
		logging.WarnWithContext(p.logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run metrics unavailable to the node exporter"),
		)
	}
	if p.journal != nil {
		if err := p.journal.Close(); err != nil {
			p.logger.Warn("journal close failed", logging.Error(err))
		}
	}
}
