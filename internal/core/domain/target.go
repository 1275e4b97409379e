package domain

// ExecSpec is the opaque execution payload handed to a backend. The
// engine never interprets the script text; it only passes it along.
type ExecSpec struct {
	// Script is the shell-level command text executed by the backend.
	Script string
	// WorkingDir is the directory the script runs in. Empty means the
	// backend's default.
	WorkingDir string
}

// Target represents one named unit of work in a workflow. It declares
// the artifacts it produces and consumes; dependency edges between
// targets are derived from those declarations, never stated directly.
type Target struct {
	Name    InternedString
	Inputs  []InternedString
	Outputs []InternedString
	Spec    ExecSpec

	// Options carries backend-specific resource hints (cores, memory,
	// walltime). Unsupported options are dropped with a warning before
	// submission.
	Options map[string]string
}
