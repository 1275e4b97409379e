// Package telemetry implements progress recording with progrock.
package telemetry

import (
	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.strandlab.net/floe/internal/core/ports"
)

var _ ports.Telemetry = (*Recorder)(nil)

// Recorder implements ports.Telemetry on a progrock tape. Each target
// becomes a vertex keyed by the digest of its name, so repeated runs
// address the same display row.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder on the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Vertex starts recording progress for the named target.
func (r *Recorder) Vertex(name string) ports.Vertex {
	v := r.rec.Vertex(digest.FromString(name), name)
	return &vertex{v: v}
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// vertex wraps a *progrock.VertexRecorder.
type vertex struct {
	v *progrock.VertexRecorder
}

func (v *vertex) Done(err error) {
	v.v.Done(err)
}

func (v *vertex) Cached() {
	v.v.Cached()
}
