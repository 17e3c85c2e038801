package organizer

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"tidyfin/internal/fileutil"
	"tidyfin/internal/logging"
)

// reviewClaims tracks review paths handed out during one run, so a dry run
// assigns the same " (N)" suffixes a real run would.
type reviewClaims struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newReviewClaims() *reviewClaims {
	return &reviewClaims{paths: make(map[string]struct{})}
}

func (c *reviewClaims) claimed(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.paths[path]
	return ok
}

func (c *reviewClaims) claim(path string) {
	c.mu.Lock()
	c.paths[path] = struct{}{}
	c.mu.Unlock()
}

// review moves entry's source into reviewDir under its original name, adding
// a " (N)" suffix when that name is taken. Without a review directory the
// file stays put.
func (e *Engine) review(logger *slog.Logger, entry PlanEntry, reviewDir string, claims *reviewClaims, dryRun bool) Outcome {
	reviewDir = strings.TrimSpace(reviewDir)
	if reviewDir == "" {
		logger.Info("no review directory; leaving file in place", logging.String("reason", entry.ReviewReason))
		return Outcome{Entry: entry, Status: StatusReviewed, FinalPath: entry.SourcePath, Note: leftInPlaceNote}
	}

	name := filepath.Base(entry.SourcePath)
	target, err := nextReviewPath(reviewDir, name, claims)
	if err != nil {
		return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: fileutil.Describe(err)}
	}
	if dryRun {
		claims.claim(target)
		return Outcome{Entry: entry, Status: StatusReviewed, FinalPath: target, Note: entry.ReviewReason}
	}

	err = fileutil.Move(entry.SourcePath, target)
	if isDestinationExists(err) {
		retryTarget, retryErr := nextReviewPath(reviewDir, name, claims)
		if retryErr != nil {
			return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: fileutil.Describe(retryErr)}
		}
		target = retryTarget
		err = fileutil.Move(entry.SourcePath, target)
	}
	if err != nil {
		logging.WarnWithContext(logger, "review move failed",
			"review_move_failed",
			logging.String("review_dir", reviewDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, moveHint(err)),
			logging.String(logging.FieldImpact, "file left at its source path"),
		)
		return Outcome{Entry: entry, Status: StatusFailed, ErrorDetail: fileutil.Describe(err)}
	}
	claims.claim(target)
	logger.Info("file moved to review",
		logging.String("review_path", target),
		logging.String("reason", entry.ReviewReason),
	)
	return Outcome{Entry: entry, Status: StatusReviewed, FinalPath: target, Note: entry.ReviewReason}
}

// nextReviewPath returns the first name in dir that is neither on disk nor
// already claimed: name itself, then "stem (2).ext", "stem (3).ext", and so on.
func nextReviewPath(dir, name string, claims *reviewClaims) (string, error) {
	const maxAttempts = 10000
	if strings.TrimSpace(name) == "" {
		name = "unidentified"
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := name
		if attempt > 1 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, attempt, ext)
		}
		path := filepath.Join(dir, candidate)
		if claims != nil && claims.claimed(path) {
			continue
		}
		exists, err := fileutil.Exists(path)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
	}
	return "", fmt.Errorf("exhausted review filename slots in %s", dir)
}

func isDestinationExists(err error) bool {
	return errors.Is(err, fileutil.ErrDestinationExists)
}

func isPermission(err error) bool {
	return errors.Is(err, fileutil.ErrPermission)
}

func isSourceMissing(err error) bool {
	return errors.Is(err, fileutil.ErrSourceMissing)
}
