package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateTarget is returned when two targets share a name.
	ErrDuplicateTarget = zerr.New("duplicate target name")

	// ErrDuplicateOutput is returned when the same artifact is declared
	// as an output of more than one target.
	ErrDuplicateOutput = zerr.New("artifact produced by multiple targets")

	// ErrCycleDetected is returned when the derived dependency graph
	// contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTargetNotFound is returned when a requested target is not
	// declared in the workflow.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrMissingExternalInput is returned when an input artifact has no
	// producing target and does not exist on disk.
	ErrMissingExternalInput = zerr.New("external input does not exist")

	// ErrSubmissionUnknown flags a submission the backend cannot
	// account for. It is never auto-resolved; the user must reconcile
	// by retrying or marking the target resolved.
	ErrSubmissionUnknown = zerr.New("submission state unknown, reconcile required")

	// ErrNoTargets is returned when a workflow declares no targets.
	ErrNoTargets = zerr.New("workflow declares no targets")

	// ErrRunFailed is the terminal error of a run in which one or more
	// targets failed. Per-target causes are joined underneath it.
	ErrRunFailed = zerr.New("run finished with failed targets")
)
