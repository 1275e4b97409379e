package domain

import "time"

// SubmissionID identifies a submission on the execution backend.
type SubmissionID string

// RunStatus is the persisted lifecycle state of a target's last run.
type RunStatus string

const (
	// StatusNeverRun indicates no submission has ever been recorded.
	StatusNeverRun RunStatus = "NeverRun"
	// StatusSubmitted indicates the backend accepted the submission but
	// the work has not been observed running yet.
	StatusSubmitted RunStatus = "Submitted"
	// StatusRunning indicates the backend reported the work as running.
	StatusRunning RunStatus = "Running"
	// StatusCompleted indicates the work finished with exit code zero.
	StatusCompleted RunStatus = "Completed"
	// StatusFailed indicates the work finished unsuccessfully or the
	// submission was rejected after all retries.
	StatusFailed RunStatus = "Failed"
	// StatusCancelled indicates the submission was cancelled on request.
	StatusCancelled RunStatus = "Cancelled"
	// StatusUnknown indicates the backend could not account for a
	// submission the engine has a record of. Never auto-resolved; the
	// user must reconcile explicitly.
	StatusUnknown RunStatus = "Unknown"
)

// InFlight reports whether the status describes work that may still be
// executing on the backend.
func (s RunStatus) InFlight() bool {
	return s == StatusSubmitted || s == StatusRunning
}

// Terminal reports whether the status is a final state for the current
// submission.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusUnknown:
		return true
	default:
		return false
	}
}

// RunRecord is the only state that survives across engine invocations.
// It is owned and mutated exclusively by the dispatcher; the staleness
// resolver reads it.
type RunRecord struct {
	Target       string       `json:"target"`
	Status       RunStatus    `json:"status"`
	SubmissionID SubmissionID `json:"submission_id,omitzero"`

	// OutputDigests holds the content digest of each declared output at
	// the time the target last completed, keyed by artifact path.
	OutputDigests map[string]uint64 `json:"output_digests,omitzero"`

	// LastError records the backend or execution error verbatim for
	// diagnostics.
	LastError string `json:"last_error,omitzero"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
