package dispatcher

import (
	"context"
	"errors"

	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
)

// ErrNotRetryable is returned by Retry for targets whose record is not
// in a state that permits resubmission.
var ErrNotRetryable = zerr.New("target is not in a retryable state")

// Retry resets a Failed, Unknown or Cancelled record back to NeverRun
// so the next run may submit the target again. This is the only path
// from Failed back into scheduling; nothing retries implicitly.
func (d *Dispatcher) Retry(name domain.InternedString) error {
	return d.store.Update(name.String(), func(rec *domain.RunRecord) error {
		switch rec.Status {
		case domain.StatusFailed, domain.StatusUnknown, domain.StatusCancelled:
			rec.Status = domain.StatusNeverRun
			rec.SubmissionID = ""
			rec.LastError = ""
			rec.OutputDigests = nil
			return nil
		default:
			err := zerr.With(ErrNotRetryable, "target", name.String())
			return zerr.With(err, "status", string(rec.Status))
		}
	})
}

// MarkResolved accepts a target with an Unknown submission as complete,
// fingerprinting its current outputs as the completion state. The
// alternative reconciliation is Retry; the engine never picks one by
// guessing.
func (d *Dispatcher) MarkResolved(g *domain.Graph, name domain.InternedString) error {
	t, err := g.Target(name)
	if err != nil {
		return err
	}

	digests := make(map[string]uint64, len(t.Outputs))
	for _, out := range t.Outputs {
		f, err := d.fp.Fingerprint(out.String())
		if err != nil {
			return err
		}
		if !f.Exists {
			err := zerr.With(zerr.New("cannot mark resolved, output missing"), "target", name.String())
			return zerr.With(err, "artifact", out.String())
		}
		digests[out.String()] = f.Digest
	}

	return d.store.Update(name.String(), func(rec *domain.RunRecord) error {
		if rec.Status != domain.StatusUnknown {
			err := zerr.With(zerr.New("target is not awaiting reconciliation"), "target", name.String())
			return zerr.With(err, "status", string(rec.Status))
		}
		rec.Status = domain.StatusCompleted
		rec.OutputDigests = digests
		rec.LastError = ""
		return nil
	})
}

// CancelAll issues best-effort cancels for every record currently
// Submitted or Running, outside of a live run loop.
func (d *Dispatcher) CancelAll(ctx context.Context, g *domain.Graph) error {
	records, err := d.store.All()
	if err != nil {
		return err
	}

	var errs error
	for _, name := range g.Names() {
		rec, ok := records[name.String()]
		if !ok || !rec.Status.InFlight() {
			continue
		}
		if err := d.backend.Cancel(ctx, rec.SubmissionID); err != nil && !errors.Is(err, ports.ErrSubmissionNotFound) {
			errs = errors.Join(errs, zerr.With(err, "target", name.String()))
			continue
		}
		err := d.store.Update(name.String(), func(rec *domain.RunRecord) error {
			if rec.Status.InFlight() {
				rec.Status = domain.StatusCancelled
				rec.LastError = "cancelled by user"
			}
			return nil
		})
		errs = errors.Join(errs, err)
	}
	return errs
}
