package ports

// Telemetry records per-target progress for an external presentation
// layer. Implementations must be safe for concurrent use; the
// dispatcher reports vertices from its state-transition loop while
// backend pollers run in parallel.
type Telemetry interface {
	// Vertex starts recording progress for the named target.
	Vertex(name string) Vertex

	// Close flushes and ends the recording session.
	Close() error
}

// Vertex tracks one target through its run.
type Vertex interface {
	// Done marks the vertex finished, with err nil on success.
	Done(err error)

	// Cached marks the vertex as skipped because the target was fresh.
	Cached()
}
