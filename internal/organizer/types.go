package organizer

import (
	"time"

	"tidyfin/internal/identification"
)

// Action is what execution will do with a planned file.
type Action string

const (
	ActionMove   Action = "move"
	ActionReview Action = "review"
)

// Status is the result of executing one plan entry.
type Status string

const (
	StatusMoved    Status = "moved"
	StatusReviewed Status = "reviewed"
	StatusFailed   Status = "failed"
)

// Roots are the library destinations. An empty Review root means review
// entries stay where they are.
type Roots struct {
	Movies string `json:"movies"`
	Shows  string `json:"shows"`
	Review string `json:"review,omitempty"`
}

// PlanEntry describes one source file. DestinationPath is empty for review
// entries.
type PlanEntry struct {
	SourcePath      string                     `json:"source_path"`
	MediaType       identification.MediaType   `json:"media_type"`
	Guess           identification.ParsedGuess `json:"guess"`
	Match           identification.MatchResult `json:"match"`
	LookupError     string                     `json:"lookup_error,omitempty"`
	DestinationPath string                     `json:"destination_path,omitempty"`
	Action          Action                     `json:"action"`
	ReviewReason    string                     `json:"review_reason,omitempty"`
}

// PlanSummary counts a plan's entries. Movies and Shows count move entries only.
type PlanSummary struct {
	Total        int `json:"total"`
	Movies       int `json:"movies"`
	Shows        int `json:"shows"`
	ManualReview int `json:"manual_review"`
}

// Plan is the preview of a batch. Building it never touches the filesystem
// beyond reads.
type Plan struct {
	RunID     string      `json:"run_id"`
	CreatedAt time.Time   `json:"created_at"`
	Roots     Roots       `json:"roots"`
	Entries   []PlanEntry `json:"entries"`
	Summary   PlanSummary `json:"summary"`
}

// Outcome records what happened to one entry during execution.
type Outcome struct {
	Entry       PlanEntry `json:"entry"`
	Status      Status    `json:"status"`
	FinalPath   string    `json:"final_path,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	Note        string    `json:"note,omitempty"`
}

// RunSummary aggregates execution outcomes.
type RunSummary struct {
	Total           int                                         `json:"total"`
	MoviesOrganized int                                         `json:"movies_organized"`
	ShowsOrganized  int                                         `json:"shows_organized"`
	ManualReview    int                                         `json:"manual_review"`
	Errors          int                                         `json:"errors"`
	ByStatus        map[Status]map[identification.MediaType]int `json:"by_status"`
}

// Report is the result of Execute.
type Report struct {
	RunID      string     `json:"run_id"`
	DryRun     bool       `json:"dry_run"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Roots      Roots      `json:"roots"`
	Outcomes   []Outcome  `json:"outcomes"`
	Summary    RunSummary `json:"summary"`
}

// ExecuteOptions tunes Execute.
type ExecuteOptions struct {
	DryRun bool
}
