// Package resolver implements the staleness classification pass over
// the target graph.
package resolver

import (
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
)

// State classifies a target relative to its artifacts and run record.
type State string

const (
	// StateFresh means all outputs exist, match the last completed run
	// and are newer than every input; nothing to do.
	StateFresh State = "Fresh"
	// StateStale means the target must (re)run.
	StateStale State = "Stale"
	// StateBlocked means the target depends, directly or transitively,
	// on a target that is not Fresh.
	StateBlocked State = "Blocked"
)

// Classification is the result of one resolution pass: a state and a
// human-readable reason per target, in topological order.
type Classification struct {
	order   []domain.InternedString
	states  map[domain.InternedString]State
	reasons map[domain.InternedString]string
}

// State returns the classification of the named target.
func (c *Classification) State(name domain.InternedString) State {
	return c.states[name]
}

// Reason returns why the target was classified the way it was.
func (c *Classification) Reason(name domain.InternedString) string {
	return c.reasons[name]
}

// Order returns the target names in topological order.
func (c *Classification) Order() []domain.InternedString {
	return c.order
}

// Runnable returns the Stale targets whose every dependency is Fresh,
// in topological order. These are the targets the dispatcher may
// submit right now; a Stale target with a Stale upstream must wait for
// that upstream to complete first.
func (c *Classification) Runnable(g *domain.Graph) []domain.InternedString {
	var runnable []domain.InternedString
	for _, name := range c.order {
		if c.states[name] != StateStale {
			continue
		}
		ready := true
		for _, dep := range g.Dependencies(name) {
			if c.states[dep] != StateFresh {
				ready = false
				break
			}
		}
		if ready {
			runnable = append(runnable, name)
		}
	}
	return runnable
}

// Resolver classifies targets. It consults artifact fingerprints and
// reads run records; it never mutates them.
type Resolver struct {
	fp  ports.Fingerprinter
	log ports.Logger
}

// New creates a Resolver.
func New(fp ports.Fingerprinter, log ports.Logger) *Resolver {
	return &Resolver{fp: fp, log: log}
}

// Resolve classifies every target in the graph in a single linear pass
// over the topological order. The pass is idempotent: with no
// intervening execution, two passes yield identical classifications.
//
// It fails with ErrMissingExternalInput when an input artifact has no
// producing target and does not exist on disk; staleness is
// undecidable in that case and the invocation aborts before any
// submission.
func (r *Resolver) Resolve(g *domain.Graph, records map[string]domain.RunRecord) (*Classification, error) {
	c := &Classification{
		order:   make([]domain.InternedString, 0, g.Len()),
		states:  make(map[domain.InternedString]State, g.Len()),
		reasons: make(map[domain.InternedString]string, g.Len()),
	}

	// Artifacts are fingerprinted at most once per pass and never
	// cached across passes.
	cache := make(map[domain.InternedString]domain.Fingerprint)
	look := func(path domain.InternedString) (domain.Fingerprint, error) {
		if f, ok := cache[path]; ok {
			return f, nil
		}
		f, err := r.fp.Fingerprint(path.String())
		if err != nil {
			return domain.Fingerprint{}, err
		}
		cache[path] = f
		return f, nil
	}

	for t := range g.Walk() {
		c.order = append(c.order, t.Name)

		if err := r.checkExternalInputs(g, &t, look); err != nil {
			return nil, err
		}

		if dep, blocked := blockingDependency(g, c, t.Name); blocked {
			c.states[t.Name] = StateBlocked
			c.reasons[t.Name] = "waiting for " + dep.String()
			continue
		}

		state, reason, err := r.classify(&t, records[t.Name.String()], look)
		if err != nil {
			return nil, err
		}
		c.states[t.Name] = state
		c.reasons[t.Name] = reason
		r.log.Debug("classified target", "target", t.Name.String(), "state", string(state), "reason", reason)
	}

	return c, nil
}

// checkExternalInputs verifies that every input without a producing
// target exists on disk.
func (r *Resolver) checkExternalInputs(g *domain.Graph, t *domain.Target, look fingerprintFunc) error {
	for _, in := range t.Inputs {
		if !g.Unresolved(in) {
			continue
		}
		f, err := look(in)
		if err != nil {
			return err
		}
		if !f.Exists {
			err := zerr.With(domain.ErrMissingExternalInput, "artifact", in.String())
			return zerr.With(err, "target", t.Name.String())
		}
	}
	return nil
}

// blockingDependency returns the first dependency that is not Fresh.
// Dependencies are visited before dependents, so their states are
// already decided.
func blockingDependency(g *domain.Graph, c *Classification, name domain.InternedString) (domain.InternedString, bool) {
	for _, dep := range g.Dependencies(name) {
		if c.states[dep] != StateFresh {
			return dep, true
		}
	}
	return domain.InternedString{}, false
}

type fingerprintFunc func(domain.InternedString) (domain.Fingerprint, error)

// classify applies the Fresh/Stale rules to a target whose
// dependencies are all Fresh.
func (r *Resolver) classify(t *domain.Target, rec domain.RunRecord, look fingerprintFunc) (State, string, error) {
	if rec.Status != domain.StatusCompleted {
		status := rec.Status
		if status == "" {
			status = domain.StatusNeverRun
		}
		return StateStale, "last run " + string(status), nil
	}

	// Outputs must exist and match the digests recorded at completion.
	var oldest domain.Fingerprint
	haveOldest := false
	for _, out := range t.Outputs {
		f, err := look(out)
		if err != nil {
			return "", "", err
		}
		if !f.Exists {
			return StateStale, "output missing: " + out.String(), nil
		}
		recorded, ok := rec.OutputDigests[out.String()]
		if !ok || f.Changed(recorded) {
			return StateStale, "output changed since last completion: " + out.String(), nil
		}
		if !haveOldest || oldest.NewerThan(f) {
			oldest = f
			haveOldest = true
		}
	}

	// Any input newer than the oldest output makes the target stale.
	for _, in := range t.Inputs {
		f, err := look(in)
		if err != nil {
			return "", "", err
		}
		if f.NewerThan(oldest) {
			return StateStale, "input newer than outputs: " + in.String(), nil
		}
	}

	return StateFresh, "", nil
}
