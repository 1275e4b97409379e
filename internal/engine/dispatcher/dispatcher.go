// Package dispatcher submits runnable targets to the execution backend
// and reconciles backend-reported state with the run record store.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.strandlab.net/floe/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/semaphore"
)

// Options tune backend I/O behaviour.
type Options struct {
	// MaxInFlightCalls bounds concurrent submit/status/cancel calls.
	MaxInFlightCalls int
	// PollInterval is the delay between status queries per submission.
	PollInterval time.Duration
	// CallTimeout bounds every individual backend call. A stuck call
	// must not stall unrelated targets.
	CallTimeout time.Duration
	// SubmitAttempts is the bounded retry limit for rejected or failing
	// submissions.
	SubmitAttempts int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration
}

// DefaultOptions are the options used when a field is left zero.
var DefaultOptions = Options{
	MaxInFlightCalls: 8,
	PollInterval:     500 * time.Millisecond,
	CallTimeout:      30 * time.Second,
	SubmitAttempts:   3,
	RetryBaseDelay:   250 * time.Millisecond,
}

func (o Options) withDefaults() Options {
	d := DefaultOptions
	if o.MaxInFlightCalls > 0 {
		d.MaxInFlightCalls = o.MaxInFlightCalls
	}
	if o.PollInterval > 0 {
		d.PollInterval = o.PollInterval
	}
	if o.CallTimeout > 0 {
		d.CallTimeout = o.CallTimeout
	}
	if o.SubmitAttempts > 0 {
		d.SubmitAttempts = o.SubmitAttempts
	}
	if o.RetryBaseDelay > 0 {
		d.RetryBaseDelay = o.RetryBaseDelay
	}
	return d
}

// Dispatcher owns all run record mutation. Backend I/O runs on
// parallel pollers bounded by a semaphore, but every state transition
// is applied on the single-threaded loop inside Run, fed by a
// completion channel.
type Dispatcher struct {
	backend  ports.Backend
	store    ports.RunRecordStore
	fp       ports.Fingerprinter
	resolver *resolver.Resolver
	log      ports.Logger
	tel      ports.Telemetry
	opts     Options

	mu       sync.Mutex
	inFlight map[domain.InternedString]domain.SubmissionID
}

// New creates a Dispatcher.
func New(
	backend ports.Backend,
	store ports.RunRecordStore,
	fp ports.Fingerprinter,
	res *resolver.Resolver,
	log ports.Logger,
	tel ports.Telemetry,
	opts Options,
) *Dispatcher {
	return &Dispatcher{
		backend:  backend,
		store:    store,
		fp:       fp,
		resolver: res,
		log:      log,
		tel:      tel,
		opts:     opts.withDefaults(),
		inFlight: make(map[domain.InternedString]domain.SubmissionID),
	}
}

// SetTelemetry swaps the progress sink. Must be called before Run.
func (d *Dispatcher) SetTelemetry(tel ports.Telemetry) {
	d.tel = tel
}

// observation is one backend status report fed back into the loop.
type observation struct {
	target domain.InternedString
	id     domain.SubmissionID
	status ports.BackendStatus
	err    error
}

type runState struct {
	ctx      context.Context
	g        *domain.Graph
	results  chan observation
	sem      *semaphore.Weighted
	active   int
	errs     error
	vertices map[domain.InternedString]ports.Vertex
	// failed holds targets that reached Failed or Unknown during this
	// invocation; they are never resubmitted automatically.
	failed map[domain.InternedString]bool
}

// Run drives the graph to completion: classify, submit the runnable
// set, track completions, and repeat until nothing is runnable and
// nothing is in flight. Targets downstream of a failure stay Blocked;
// Run returns ErrRunFailed with per-target causes joined underneath.
func (d *Dispatcher) Run(ctx context.Context, g *domain.Graph) error {
	state := &runState{
		ctx:      ctx,
		g:        g,
		results:  make(chan observation, d.opts.MaxInFlightCalls),
		sem:      semaphore.NewWeighted(int64(d.opts.MaxInFlightCalls)),
		vertices: make(map[domain.InternedString]ports.Vertex),
		failed:   make(map[domain.InternedString]bool),
	}
	defer d.tel.Close() //nolint:errcheck // Best effort flush

	if err := d.adoptInFlight(state); err != nil {
		return err
	}

	for {
		submitted, err := d.scheduleRunnable(state)
		if err != nil {
			// Configuration errors abort before any further submission,
			// but in-flight work is still tracked to completion.
			state.errs = errors.Join(state.errs, err)
			d.drain(state)
			return state.errs
		}

		if state.active == 0 && submitted == 0 {
			break
		}

		select {
		case obs := <-state.results:
			d.handleObservation(state, obs)
		case <-ctx.Done():
			d.cancelInFlight(state)
			d.drain(state)
			return errors.Join(state.errs, ctx.Err())
		}
	}

	if state.errs != nil {
		return zerr.Wrap(errors.Join(domain.ErrRunFailed, state.errs), "run finished")
	}
	return nil
}

// adoptInFlight picks up submissions recorded as Submitted or Running
// by a previous invocation and resumes polling them instead of
// resubmitting.
func (d *Dispatcher) adoptInFlight(state *runState) error {
	records, err := d.store.All()
	if err != nil {
		return err
	}
	for _, name := range state.g.Names() {
		rec, ok := records[name.String()]
		if !ok || !rec.Status.InFlight() {
			continue
		}
		d.log.Info("adopting in-flight submission", "target", name.String(), "submission_id", string(rec.SubmissionID))
		d.track(state, name, rec.SubmissionID)
	}
	return nil
}

// scheduleRunnable runs a resolution pass and submits every currently
// runnable target. It returns the number of new submissions. The pass
// is re-evaluated after every batch of completions because completions
// change the Fresh set dynamically.
func (d *Dispatcher) scheduleRunnable(state *runState) (int, error) {
	records, err := d.store.All()
	if err != nil {
		return 0, err
	}
	cls, err := d.resolver.Resolve(state.g, records)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, name := range cls.Runnable(state.g) {
		if !d.eligible(state, name, records[name.String()]) {
			continue
		}
		if err := d.submit(state, name); err != nil {
			state.errs = errors.Join(state.errs, err)
			state.failed[name] = true
			continue
		}
		submitted++
	}
	return submitted, nil
}

// eligible applies the scheduling guards: at most one in-flight
// submission per target, and no automatic resubmission of targets that
// failed, either earlier in this invocation or in a recorded prior run
// that has not been explicitly retried.
func (d *Dispatcher) eligible(state *runState, name domain.InternedString, rec domain.RunRecord) bool {
	d.mu.Lock()
	_, flying := d.inFlight[name]
	d.mu.Unlock()
	if flying {
		// Idempotent scheduling: already submitted is a no-op, not an
		// error.
		return false
	}
	if state.failed[name] {
		return false
	}
	switch rec.Status {
	case domain.StatusFailed:
		d.log.Warn("skipping failed target; retry explicitly to resubmit", "target", name.String())
		return false
	case domain.StatusUnknown:
		d.log.Warn("skipping target with unknown submission state; reconcile explicitly", "target", name.String())
		return false
	default:
		return true
	}
}

// submit sends one target to the backend and persists the submission
// record before any further dispatch proceeds. This ordering is what
// prevents double submission across process restarts.
func (d *Dispatcher) submit(state *runState, name domain.InternedString) error {
	t, err := state.g.Target(name)
	if err != nil {
		return err
	}
	d.prepareOptions(&t)

	id, err := d.submitWithRetry(state.ctx, &t)
	if err != nil {
		markErr := d.store.Update(name.String(), func(rec *domain.RunRecord) error {
			rec.Status = domain.StatusFailed
			rec.LastError = err.Error()
			return nil
		})
		return errors.Join(zerr.With(err, "target", name.String()), markErr)
	}

	if err := d.store.Update(name.String(), func(rec *domain.RunRecord) error {
		rec.Status = domain.StatusSubmitted
		rec.SubmissionID = id
		rec.LastError = ""
		rec.OutputDigests = nil
		return nil
	}); err != nil {
		return err
	}

	d.log.Info("submitted target", "target", name.String(), "submission_id", string(id))
	state.vertices[name] = d.tel.Vertex(name.String())
	d.track(state, name, id)
	return nil
}

// prepareOptions merges backend option defaults under the target's
// options and drops options the backend does not support, with a
// warning.
func (d *Dispatcher) prepareOptions(t *domain.Target) {
	defaults := d.backend.OptionDefaults()
	merged := make(map[string]string, len(defaults)+len(t.Options))
	for k, v := range defaults {
		if v != "" {
			merged[k] = v
		}
	}
	for k, v := range t.Options {
		if _, supported := defaults[k]; !supported {
			d.log.Warn("option not supported by backend; ignored", "option", k, "target", t.Name.String())
			continue
		}
		merged[k] = v
	}
	t.Options = merged
}

// submitWithRetry retries rejected submissions with bounded
// exponential backoff before giving up.
func (d *Dispatcher) submitWithRetry(ctx context.Context, t *domain.Target) (domain.SubmissionID, error) {
	var lastErr error
	delay := d.opts.RetryBaseDelay
	for attempt := 1; attempt <= d.opts.SubmitAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
		id, err := d.backend.Submit(callCtx, t)
		cancel()
		if err == nil {
			return id, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < d.opts.SubmitAttempts {
			d.log.Warn("submission failed, retrying",
				"target", t.Name.String(), "attempt", attempt, "error", err.Error())
			if !sleep(ctx, delay) {
				break
			}
			delay *= 2
		}
	}
	return "", zerr.Wrap(lastErr, "submission failed after retries")
}

// track registers a submission as in flight and starts its poller.
func (d *Dispatcher) track(state *runState, name domain.InternedString, id domain.SubmissionID) {
	d.mu.Lock()
	d.inFlight[name] = id
	d.mu.Unlock()
	state.active++
	go d.poll(state, name, id)
}

// poll queries the backend until the submission reaches a terminal
// state, reporting transitions on the results channel. Status calls
// share the dispatcher-wide semaphore so a slow backend cannot pile up
// unbounded concurrent requests.
func (d *Dispatcher) poll(state *runState, name domain.InternedString, id domain.SubmissionID) {
	reportedRunning := false
	for {
		status, err := d.status(state, id)
		if err != nil {
			if state.ctx.Err() != nil {
				return
			}
			state.results <- observation{target: name, id: id, err: err}
			return
		}

		if status.State == ports.StateRunning && !reportedRunning {
			reportedRunning = true
			state.results <- observation{target: name, id: id, status: status}
		}
		if status.State.Terminal() {
			state.results <- observation{target: name, id: id, status: status}
			return
		}

		if !sleep(state.ctx, d.opts.PollInterval) {
			return
		}
	}
}

func (d *Dispatcher) status(state *runState, id domain.SubmissionID) (ports.BackendStatus, error) {
	if err := state.sem.Acquire(state.ctx, 1); err != nil {
		return ports.BackendStatus{}, err
	}
	defer state.sem.Release(1)

	callCtx, cancel := context.WithTimeout(state.ctx, d.opts.CallTimeout)
	defer cancel()
	return d.backend.Status(callCtx, id)
}

// handleObservation applies one backend report to the run record.
// Record writes for a target are strictly ordered because they all
// happen here, on the loop goroutine.
func (d *Dispatcher) handleObservation(state *runState, obs observation) {
	if obs.status.State == ports.StateRunning && obs.err == nil {
		err := d.store.Update(obs.target.String(), func(rec *domain.RunRecord) error {
			rec.Status = domain.StatusRunning
			return nil
		})
		if err != nil {
			d.log.Error(err)
		}
		return
	}

	d.untrack(state, obs.target)

	switch {
	case obs.err != nil:
		d.recordFailure(state, obs.target, domain.StatusFailed, obs.err.Error())
		state.errs = errors.Join(state.errs, zerr.With(obs.err, "target", obs.target.String()))
	case obs.status.State == ports.StateCompleted:
		d.recordCompletion(state, obs.target)
	case obs.status.State == ports.StateUnknown:
		// Never resolved by guessing: the submission may still be
		// executing on the backend. Flag distinctly and leave
		// reconciliation to the user.
		d.recordFailure(state, obs.target, domain.StatusUnknown, "backend cannot account for submission "+string(obs.id))
		err := zerr.With(domain.ErrSubmissionUnknown, "target", obs.target.String())
		state.errs = errors.Join(state.errs, zerr.With(err, "submission_id", string(obs.id)))
	default:
		reason := obs.status.Reason
		if reason == "" {
			reason = "non-zero exit"
		}
		d.recordFailure(state, obs.target, domain.StatusFailed, reason)
		err := zerr.With(zerr.New("target failed"), "target", obs.target.String())
		err = zerr.With(err, "exit_code", obs.status.ExitCode)
		state.errs = errors.Join(state.errs, zerr.With(err, "reason", reason))
	}
}

// recordCompletion re-fingerprints the declared outputs and persists
// them with the completion record.
func (d *Dispatcher) recordCompletion(state *runState, name domain.InternedString) {
	t, err := state.g.Target(name)
	if err != nil {
		d.log.Error(err)
		return
	}

	digests := make(map[string]uint64, len(t.Outputs))
	for _, out := range t.Outputs {
		f, err := d.fp.Fingerprint(out.String())
		if err != nil || !f.Exists {
			reason := "completed but output missing: " + out.String()
			if err != nil {
				reason = err.Error()
			}
			d.recordFailure(state, name, domain.StatusFailed, reason)
			state.errs = errors.Join(state.errs, zerr.With(zerr.New(reason), "target", name.String()))
			return
		}
		digests[out.String()] = f.Digest
	}

	err = d.store.Update(name.String(), func(rec *domain.RunRecord) error {
		rec.Status = domain.StatusCompleted
		rec.OutputDigests = digests
		rec.LastError = ""
		return nil
	})
	if err != nil {
		d.log.Error(err)
		return
	}

	d.log.Info("target completed", "target", name.String())
	if v, ok := state.vertices[name]; ok {
		v.Done(nil)
	}
}

func (d *Dispatcher) recordFailure(state *runState, name domain.InternedString, status domain.RunStatus, reason string) {
	state.failed[name] = true
	err := d.store.Update(name.String(), func(rec *domain.RunRecord) error {
		rec.Status = status
		rec.LastError = reason
		return nil
	})
	if err != nil {
		d.log.Error(err)
	}
	if v, ok := state.vertices[name]; ok {
		v.Done(zerr.New(reason))
	}
}

func (d *Dispatcher) untrack(state *runState, name domain.InternedString) {
	d.mu.Lock()
	delete(d.inFlight, name)
	d.mu.Unlock()
	state.active--
}

// cancelInFlight issues best-effort cancels for everything currently
// submitted or running. Completed work and its records are untouched;
// cancellation is a request, not a rollback.
func (d *Dispatcher) cancelInFlight(state *runState) {
	d.mu.Lock()
	pending := make(map[domain.InternedString]domain.SubmissionID, len(d.inFlight))
	for name, id := range d.inFlight {
		pending[name] = id
	}
	d.mu.Unlock()

	// The run context is already cancelled; cancellation gets its own
	// bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.CallTimeout)
	defer cancel()

	for name, id := range pending {
		if err := d.backend.Cancel(ctx, id); err != nil && !errors.Is(err, ports.ErrSubmissionNotFound) {
			d.log.Warn("cancel failed", "target", name.String(), "error", err.Error())
		}
		err := d.store.Update(name.String(), func(rec *domain.RunRecord) error {
			if rec.Status.InFlight() {
				rec.Status = domain.StatusCancelled
				rec.LastError = "cancelled by user"
			}
			return nil
		})
		if err != nil {
			d.log.Error(err)
		}
	}
}

// drain discards outstanding poller results so their goroutines can
// exit. Pollers also bail out on their own once the context dies.
func (d *Dispatcher) drain(state *runState) {
	for state.active > 0 {
		select {
		case obs := <-state.results:
			d.untrack(state, obs.target)
		case <-time.After(d.opts.CallTimeout):
			return
		}
	}
}

// sleep waits for the duration unless the context ends first.
func sleep(ctx context.Context, delay time.Duration) bool {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
