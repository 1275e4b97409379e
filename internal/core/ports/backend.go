// Package ports defines the core interfaces for the engine.
package ports

import (
	"context"

	"go.strandlab.net/floe/internal/core/domain"
	"go.trai.ch/zerr"
)

// BackendState is the execution state of a submission as reported by
// the backend.
type BackendState string

const (
	// StatePending indicates the submission is queued but not running.
	StatePending BackendState = "Pending"
	// StateRunning indicates the submission is executing.
	StateRunning BackendState = "Running"
	// StateCompleted indicates the submission finished with exit code 0.
	StateCompleted BackendState = "Completed"
	// StateFailed indicates the submission finished unsuccessfully.
	StateFailed BackendState = "Failed"
	// StateUnknown indicates the backend cannot account for the
	// submission, e.g. after a backend restart. It is reported, never
	// fabricated into a guess.
	StateUnknown BackendState = "Unknown"
)

// Terminal reports whether the state is final for the submission.
func (s BackendState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateUnknown:
		return true
	default:
		return false
	}
}

// BackendStatus is the full status report for one submission.
type BackendStatus struct {
	State    BackendState
	ExitCode int
	// Reason carries the backend's failure description verbatim.
	Reason string
}

var (
	// ErrSubmissionRejected is returned by Submit when the backend
	// refuses the request (queue full, invalid resource request,
	// transport failure).
	ErrSubmissionRejected = zerr.New("backend rejected submission")

	// ErrSubmissionNotFound is returned by Cancel when the backend has
	// no record of the submission.
	ErrSubmissionNotFound = zerr.New("submission not found")
)

// Backend is the sole point of contact with an execution environment.
// Concrete backends (cluster scheduler, local process pool, container
// runtime) are injected at startup.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Submit hands the target's execution spec to the backend and
	// returns the backend-assigned submission identifier. Fails with
	// ErrSubmissionRejected if the backend refuses.
	Submit(ctx context.Context, target *domain.Target) (domain.SubmissionID, error)

	// Status reports the current state of a submission. A submission
	// the backend cannot locate yields StateUnknown, not an error.
	Status(ctx context.Context, id domain.SubmissionID) (BackendStatus, error)

	// Cancel requests best-effort cancellation. A submission that
	// already completed is reported as completed, not cancelled.
	// Returns ErrSubmissionNotFound for unknown identifiers.
	Cancel(ctx context.Context, id domain.SubmissionID) error

	// OptionDefaults returns the backend options this backend supports
	// together with their default values. Target options outside this
	// set are dropped with a warning before submission.
	OptionDefaults() map[string]string
}
