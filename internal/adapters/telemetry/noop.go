package telemetry

import "go.strandlab.net/floe/internal/core/ports"

var _ ports.Telemetry = (*Noop)(nil)

// Noop discards all progress events. Used for quiet mode and tests.
type Noop struct{}

// NewNoop creates a Noop telemetry sink.
func NewNoop() *Noop { return &Noop{} }

// Vertex returns a vertex that ignores everything.
func (*Noop) Vertex(string) ports.Vertex { return noopVertex{} }

// Close is a no-op.
func (*Noop) Close() error { return nil }

type noopVertex struct{}

func (noopVertex) Done(error) {}
func (noopVertex) Cached()    {}
