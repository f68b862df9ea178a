package domain

import "time"

// Import run statuses.
const (
	RunStatusPending = "pending"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
	RunStatusError   = "error"
)

// Entry outcome statuses.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ImportRun records one invocation of the importer.
// Used for the run history shown by the history command.
type ImportRun struct {
	ID         string     `json:"id" db:"id"`
	Source     string     `json:"source" db:"source"`
	DryRun     bool       `json:"dry_run" db:"dry_run"`
	Status     string     `json:"status" db:"status"` // "pending", "success", "partial", "failed", "error"
	Successful int        `json:"successful" db:"successful"`
	Skipped    int        `json:"skipped" db:"skipped"`
	Failed     int        `json:"failed" db:"failed"`
	Total      int        `json:"total" db:"total"`
	Error      string     `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// EntryOutcome is the result of reconciling a single entry.
type EntryOutcome struct {
	RunID        string `json:"run_id" db:"run_id"`
	Position     int    `json:"position" db:"position"`
	Line         int    `json:"line" db:"line"`
	Path         string `json:"path" db:"path"`
	DeviceName   string `json:"device_name" db:"device_name"`
	Status       string `json:"status" db:"status"` // "created", "skipped", "failed"
	ConnectionID string `json:"connection_id,omitempty" db:"connection_id"`
	Error        string `json:"error,omitempty" db:"error"`
}

// RunStatus derives the run status from its counters.
// An empty input counts as success; zero creations out of a nonzero total is a failure.
func RunStatus(successful, total int) string {
	switch {
	case successful == total:
		return RunStatusSuccess
	case successful > 0:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}
