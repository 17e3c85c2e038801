package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tidyfin/internal/identification"
	"tidyfin/internal/organizer"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; older journals must be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Journal records executed organize runs in SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

var _ organizer.Recorder = (*Journal)(nil)

// RunRecord is one row of run history.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	MoviesDir  string    `json:"movies_dir,omitempty"`
	ShowsDir   string    `json:"shows_dir,omitempty"`
	ReviewDir  string    `json:"review_dir,omitempty"`

	Total           int `json:"total"`
	MoviesOrganized int `json:"movies_organized"`
	ShowsOrganized  int `json:"shows_organized"`
	ManualReview    int `json:"manual_review"`
	Errors          int `json:"errors"`
}

// OutcomeRecord is one file's result within a recorded run.
type OutcomeRecord struct {
	Position        int                      `json:"position"`
	SourcePath      string                   `json:"source_path"`
	MediaType       identification.MediaType `json:"media_type"`
	Action          organizer.Action         `json:"action"`
	Status          organizer.Status         `json:"status"`
	FinalPath       string                   `json:"final_path,omitempty"`
	ConfidenceScore float64                  `json:"confidence_score"`
	Tier            identification.Tier      `json:"confidence_tier"`
	CatalogID       int64                    `json:"catalog_id,omitempty"`
	ReviewReason    string                   `json:"review_reason,omitempty"`
	ErrorDetail     string                   `json:"error_detail,omitempty"`
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordRun stores report and every outcome in one transaction.
func (j *Journal) RecordRun(ctx context.Context, report *organizer.Report) error {
	if report == nil {
		return errors.New("report is nil")
	}
	if strings.TrimSpace(report.RunID) == "" {
		return errors.New("report has no run id")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return j.recordRunTx(ctx, report)
	})
}

func (j *Journal) recordRunTx(ctx context.Context, report *organizer.Report) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := report.Summary
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, started_at, finished_at, movies_dir, shows_dir, review_dir,
            total, movies_organized, shows_organized, manual_review, errors
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		nullableString(report.Roots.Movies),
		nullableString(report.Roots.Shows),
		nullableString(report.Roots.Review),
		s.Total, s.MoviesOrganized, s.ShowsOrganized, s.ManualReview, s.Errors,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (
            run_id, position, source_path, media_type, action, status, final_path,
            confidence_score, confidence_tier, catalog_id, review_reason, error_detail
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for idx, outcome := range report.Outcomes {
		entry := outcome.Entry
		var catalogID sql.NullInt64
		if entry.Match.Candidate != nil {
			catalogID = sql.NullInt64{Int64: entry.Match.Candidate.CatalogID, Valid: true}
		}
		tier := entry.Match.Tier
		if tier == "" {
			tier = identification.TierLow
		}
		if _, err := stmt.ExecContext(ctx,
			report.RunID,
			idx,
			entry.SourcePath,
			entry.MediaType.String(),
			string(entry.Action),
			string(outcome.Status),
			nullableString(outcome.FinalPath),
			entry.Match.ConfidenceScore,
			string(tier),
			catalogID,
			nullableString(entry.ReviewReason),
			nullableString(outcome.ErrorDetail),
		); err != nil {
			return fmt.Errorf("insert outcome %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. A limit <= 0 means 20.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, started_at, finished_at, movies_dir, shows_dir, review_dir,
                total, movies_organized, shows_organized, manual_review, errors
         FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec                            RunRecord
			startedRaw, finishedRaw        string
			moviesDir, showsDir, reviewDir sql.NullString
		)
		if err := rows.Scan(
			&rec.RunID, &startedRaw, &finishedRaw, &moviesDir, &showsDir, &reviewDir,
			&rec.Total, &rec.MoviesOrganized, &rec.ShowsOrganized, &rec.ManualReview, &rec.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = parseTime(startedRaw)
		rec.FinishedAt = parseTime(finishedRaw)
		rec.MoviesDir = moviesDir.String
		rec.ShowsDir = showsDir.String
		rec.ReviewDir = reviewDir.String
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Outcomes returns the recorded outcomes of runID in plan order.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := j.db.QueryContext(ensureContext(ctx),
		`SELECT position, source_path, media_type, action, status, final_path,
                confidence_score, confidence_tier, catalog_id, review_reason, error_detail
         FROM outcomes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRecord
	for rows.Next() {
		var (
			rec                                  OutcomeRecord
			mediaType, action, status, tier      string
			finalPath, reviewReason, errorDetail sql.NullString
			catalogID                            sql.NullInt64
		)
		if err := rows.Scan(
			&rec.Position, &rec.SourcePath, &mediaType, &action, &status, &finalPath,
			&rec.ConfidenceScore, &tier, &catalogID, &reviewReason, &errorDetail,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		kind, err := identification.ParseMediaType(mediaType)
		if err != nil {
			return nil, fmt.Errorf("decode outcome %d: %w", rec.Position, err)
		}
		rec.MediaType = kind
		rec.Action = organizer.Action(action)
		rec.Status = organizer.Status(status)
		rec.Tier = identification.Tier(tier)
		rec.FinalPath = finalPath.String
		rec.CatalogID = catalogID.Int64
		rec.ReviewReason = reviewReason.String
		rec.ErrorDetail = errorDetail.String
		outcomes = append(outcomes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}
