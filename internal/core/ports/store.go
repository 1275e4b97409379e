package ports

import "go.strandlab.net/floe/internal/core/domain"

// RunRecordStore persists run records across engine invocations. It is
// the only mutable shared resource in the engine; implementations must
// make Update an atomic read-modify-write per target so that
// submissions for unrelated targets can be dispatched concurrently
// without racing the persist-then-proceed ordering.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type RunRecordStore interface {
	// Get retrieves the record for a target. Returns nil, nil if the
	// target has never been recorded (or its record was corrupt).
	Get(target string) (*domain.RunRecord, error)

	// Update applies fn to the target's record under exclusion and
	// persists the result before returning. A target with no prior
	// record is presented to fn as a fresh NeverRun record.
	Update(target string, fn func(*domain.RunRecord) error) error

	// All returns a snapshot of every persisted record keyed by target.
	All() (map[string]domain.RunRecord, error)

	// Prune removes records for targets not present in keep. Called at
	// graph build when declarations change.
	Prune(keep map[string]bool) error
}
