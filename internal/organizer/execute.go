package organizer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"tidyfin/internal/fileutil"
	"tidyfin/internal/identification"
	"tidyfin/internal/logging"
	"tidyfin/internal/services"
)

const leftInPlaceNote = "left in place"

// lane is the ordered list of entries that write into one root.
type lane struct {
	root    string
	indexes []int
}

// Execute applies plan. Entries sharing a destination root run one after
// another; different roots run concurrently. A failed entry is recorded and
// never stops the others. With DryRun set nothing on disk changes and the
// report is not recorded.
func (e *Engine) Execute(ctx context.Context, plan *Plan, opts ExecuteOptions) (*Report, error) {
	if plan == nil {
		return nil, services.Wrap(services.ErrValidation, "organizer", "execute", "plan is required", nil)
	}
	ctx = services.WithStage(services.WithRunID(ctx, plan.RunID), "execute")
	logger := logging.WithContext(ctx, e.logger)

	if !opts.DryRun && e.lockPath != "" {
		lock, err := e.acquireLock()
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release execution lock",
					logging.Error(err),
					logging.String(logging.FieldEventType, "lock_release_failed"),
					logging.String(logging.FieldErrorHint, "remove "+e.lockPath+" if no tidyfin process is running"),
					logging.String(logging.FieldImpact, "next organize run may report a held lock"),
				)
			}
		}()
	}

	report := &Report{
		RunID:     plan.RunID,
		DryRun:    opts.DryRun,
		StartedAt: e.now(),
		Roots:     plan.Roots,
	}
	outcomes := make([]Outcome, len(plan.Entries))
	claims := newReviewClaims()
	var group errgroup.Group
	for _, l := range laneEntries(plan) {
		group.Go(func() error {
			for _, idx := range l.indexes {
				outcomes[idx] = e.apply(ctx, logger, plan.Entries[idx], plan.Roots, claims, opts.DryRun)
			}
			return nil
		})
	}
	_ = group.Wait()

	report.Outcomes = outcomes
	report.Summary = SummarizeOutcomes(outcomes)
	report.FinishedAt = e.now()
	logger.Info("organize run finished",
		logging.String(logging.FieldEventType, "execute_complete"),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("movies_organized", report.Summary.MoviesOrganized),
		logging.Int("shows_organized", report.Summary.ShowsOrganized),
		logging.Int("manual_review", report.Summary.ManualReview),
		logging.Int("errors", report.Summary.Errors),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if !opts.DryRun && e.recorder != nil {
		if err := e.recorder.RecordRun(ctx, report); err != nil {
			logging.WarnWithContext(logger, "failed to record run in journal",
				"journal_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
				logging.String(logging.FieldImpact, "run will be missing from history"),
			)
		}
	}
	if e.observer != nil {
		e.observer.ObserveReport(report)
	}
	return report, nil
}

func (e *Engine) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(e.lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "organizer", "acquire lock", "cannot create lock directory", err)
	}
	lock := flock.New(e.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "organizer", "acquire lock", "cannot open execution lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "organizer", "acquire lock", "another organize run is in progress", nil)
	}
	return lock, nil
}

// laneEntries groups entry indexes by the root they write into, preserving
// plan order within each lane.
func laneEntries(plan *Plan) []lane {
	var lanes []lane
	position := make(map[string]int)
	for idx, entry := range plan.Entries {
		root := entryRoot(entry, plan.Roots)
		pos, ok := position[root]
		if !ok {
			pos = len(lanes)
			position[root] = pos
			lanes = append(lanes, lane{root: root})
		}
		lanes[pos].indexes = append(lanes[pos].indexes, idx)
	}
	return lanes
}

func entryRoot(entry PlanEntry, roots Roots) string {
	if entry.Action != ActionMove {
		return roots.Review
	}
	if entry.MediaType == identification.MediaTypeTVEpisode {
		return roots.Shows
	}
	return roots.Movies
}

func (e *Engine) apply(ctx context.Context, logger *slog.Logger, entry PlanEntry, roots Roots, claims *reviewClaims, dryRun bool) Outcome {
	logger = logger.With(logging.String(logging.FieldFile, filepath.Base(entry.SourcePath)))
	if err := ctx.Err(); err != nil {
		return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: "run cancelled before this file was handled"}
	}
	if entry.Action != ActionMove {
		return e.review(logger, entry, roots.Review, claims, dryRun)
	}
	if entry.DestinationPath == "" {
		return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: "no destination planned"}
	}
	if dryRun {
		return Outcome{Entry: entry, Status: StatusMoved, FinalPath: entry.DestinationPath}
	}
	if err := fileutil.Move(entry.SourcePath, entry.DestinationPath); err != nil {
		logging.WarnWithContext(logger, "library move failed",
			"library_move_failed",
			logging.String("destination", entry.DestinationPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, moveHint(err)),
			logging.String(logging.FieldImpact, "file left at its source path"),
		)
		return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: fileutil.Describe(err)}
	}
	logger.Info("file organized", logging.String("destination", entry.DestinationPath))
	return Outcome{Entry: entry, Status: StatusMoved, FinalPath: entry.DestinationPath}
}

func moveHint(err error) string {
	switch {
	case isDestinationExists(err):
		return "a file appeared at the destination after preview; rerun preview"
	case isPermission(err):
		return "check write permissions on the library root"
	case isSourceMissing(err):
		return "the source was moved or deleted after preview"
	default:
		return "check logs for details"
	}
}
