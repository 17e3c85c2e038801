package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tidyfin/internal/identification"
	"tidyfin/internal/logging"
	"tidyfin/internal/services"
)

const defaultConcurrency = 4

// Recorder persists executed runs.
type Recorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Observer receives finished plans and reports, typically for metrics.
type Observer interface {
	ObservePlan(plan *Plan)
	ObserveReport(report *Report)
}

// EngineOptions configures an Engine. Zero values select defaults.
type EngineOptions struct {
	Roots       Roots
	Concurrency int
	// LockPath, when set, is held with an exclusive file lock for the length
	// of every non-dry-run Execute.
	LockPath string
	Recorder Recorder
	Observer Observer
}

// Engine turns a list of source files into a plan and applies plans.
type Engine struct {
	matcher     *identification.Matcher
	roots       Roots
	concurrency int
	lockPath    string
	recorder    Recorder
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine builds an Engine around matcher.
func NewEngine(matcher *identification.Matcher, opts EngineOptions, logger *slog.Logger) (*Engine, error) {
	if matcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "organizer", "new engine", "matcher is required", nil)
	}
	if strings.TrimSpace(opts.Roots.Movies) == "" && strings.TrimSpace(opts.Roots.Shows) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "organizer", "new engine", "at least one library root is required", nil)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Engine{
		matcher:     matcher,
		roots:       opts.Roots,
		concurrency: concurrency,
		lockPath:    strings.TrimSpace(opts.LockPath),
		recorder:    opts.Recorder,
		observer:    opts.Observer,
		logger:      logging.NewComponentLogger(logger, "organizer"),
		now:         time.Now,
	}, nil
}

// Roots returns the configured library roots.
func (e *Engine) Roots() Roots {
	return e.roots
}

// Plan identifies every path and assigns an action to each. Lookups run
// concurrently up to the configured limit; entries keep the order of paths.
// Only a rejected catalog credential or cancellation aborts the batch.
func (e *Engine) Plan(ctx context.Context, paths []string) (*Plan, error) {
	runID := uuid.NewString()
	ctx = services.WithStage(services.WithRunID(ctx, runID), "plan")
	logger := logging.WithContext(ctx, e.logger)
	started := e.now()

	if err := e.matcher.Verify(ctx); err != nil {
		if services.IsFatal(err) {
			return nil, err
		}
		logging.WarnWithContext(logger, "catalog unreachable; continuing with degraded matching",
			"catalog_unreachable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to TMDB"),
			logging.String(logging.FieldImpact, "files may be routed to manual review"),
		)
	}

	entries := make([]PlanEntry, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)
	for idx, path := range paths {
		group.Go(func() error {
			entry, err := e.identify(groupCtx, path)
			if err != nil {
				return err
			}
			entries[idx] = entry
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if isCancelled(err) {
			return nil, services.Wrap(services.ErrTransient, "organizer", "plan", "planning cancelled", err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "organizer", "plan", "planning cancelled", err)
	}

	collisions := newCollisionSet()
	for idx := range entries {
		e.assign(logger, &entries[idx], collisions)
	}

	plan := &Plan{
		RunID:     runID,
		CreatedAt: started,
		Roots:     e.roots,
		Entries:   entries,
		Summary:   Summarize(entries),
	}
	logger.Info("plan ready",
		logging.String(logging.FieldEventType, "plan_complete"),
		logging.Int("total", plan.Summary.Total),
		logging.Int("movies", plan.Summary.Movies),
		logging.Int("shows", plan.Summary.Shows),
		logging.Int("manual_review", plan.Summary.ManualReview),
		logging.Duration("elapsed", e.now().Sub(started)),
	)
	if e.observer != nil {
		e.observer.ObservePlan(plan)
	}
	return plan, nil
}

// identify parses, classifies, and matches one file.
func (e *Engine) identify(ctx context.Context, path string) (PlanEntry, error) {
	if err := ctx.Err(); err != nil {
		return PlanEntry{}, err
	}
	ctx = services.WithFile(ctx, filepath.Base(path))
	guess := identification.ParseFilename(path)
	kind := identification.Classify(guess)
	match := e.matcher.Match(ctx, guess, kind)
	if services.IsFatal(match.LookupErr) {
		return PlanEntry{}, match.LookupErr
	}
	return PlanEntry{
		SourcePath:  path,
		MediaType:   kind,
		Guess:       guess,
		Match:       match,
		LookupError: match.LookupDetail(),
	}, nil
}

// assign decides the action for entry. It runs on the planning goroutine
// only, after every lookup finished, so collisions see the whole batch.
func (e *Engine) assign(logger *slog.Logger, entry *PlanEntry, collisions *collisionSet) {
	entry.Action = ActionReview
	entry.DestinationPath = ""
	logger = logger.With(logging.String(logging.FieldFile, filepath.Base(entry.SourcePath)))

	reason := reviewReason(*entry)
	if reason == "" {
		dest, ok := Destination(entry.MediaType, entry.Guess, entry.Match, filepath.Ext(entry.SourcePath), e.roots)
		if !ok {
			reason = fmt.Sprintf("no destination for %s", entry.MediaType)
		} else if why, claimed := collisions.claim(dest, entry.SourcePath); !claimed {
			reason = why
		} else {
			entry.Action = ActionMove
			entry.DestinationPath = dest
		}
	}
	entry.ReviewReason = reason

	if entry.Action == ActionMove {
		logRoutingDecision(logger, "organize", "confidence "+string(entry.Match.Tier), entry.Match.ConfidenceScore)
		return
	}
	logRoutingDecision(logger, "review", reason, entry.Match.ConfidenceScore)
}

func reviewReason(entry PlanEntry) string {
	switch {
	case entry.MediaType == identification.MediaTypeUnknown:
		return "could not identify media type"
	case entry.LookupError != "":
		return "catalog lookup failed"
	case entry.Match.Tier == identification.TierLow:
		if entry.Match.Candidate == nil {
			return "no catalog match"
		}
		return fmt.Sprintf("low confidence (%.2f)", entry.Match.ConfidenceScore)
	default:
		return ""
	}
}

// logRoutingDecision logs a review routing decision with consistent fields.
func logRoutingDecision(logger *slog.Logger, result, reason string, score float64) {
	logger.Info(
		"organizer routing decision",
		logging.Args(append(logging.DecisionAttrs("organizer_review_routing", result, reason),
			logging.String("decision_options", "organize, review"),
			logging.Float64("confidence_score", score))...)...,
	)
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
