package dispatcher

import (
	"context"

	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/engine/resolver"
)

// Plan describes what a run would submit, without contacting the
// backend or touching the run record store.
type Plan struct {
	// Classification is the resolution pass the plan is based on.
	Classification *resolver.Classification

	// Waves lists submissions in dependency order: wave n+1 becomes
	// runnable once wave n completes. Assumes every simulated
	// submission succeeds.
	Waves [][]domain.InternedString

	// InFlight lists targets with a live submission from a previous
	// invocation; they are polled, not resubmitted.
	InFlight []domain.InternedString

	// Held lists targets that will not be scheduled because their
	// record shows Failed or Unknown and needs an explicit retry.
	Held []domain.InternedString
}

// Plan simulates a run. Targets with a Failed or Unknown record are
// held back exactly as Run would hold them; targets blocked only
// behind simulated completions surface in later waves.
func (d *Dispatcher) Plan(ctx context.Context, g *domain.Graph) (*Plan, error) {
	records, err := d.store.All()
	if err != nil {
		return nil, err
	}
	cls, err := d.resolver.Resolve(g, records)
	if err != nil {
		return nil, err
	}

	p := &Plan{Classification: cls}

	states := make(map[domain.InternedString]resolver.State, g.Len())
	held := make(map[domain.InternedString]bool)
	for _, name := range cls.Order() {
		states[name] = cls.State(name)
		rec := records[name.String()]
		switch rec.Status {
		case domain.StatusFailed, domain.StatusUnknown:
			if states[name] == resolver.StateStale {
				held[name] = true
				p.Held = append(p.Held, name)
			}
		case domain.StatusSubmitted, domain.StatusRunning:
			// A live submission is simulated as completing.
			p.InFlight = append(p.InFlight, name)
			states[name] = resolver.StateFresh
		}
	}

	for {
		// A blocked target whose upstreams are all simulated Fresh will
		// have to rerun, since those upstreams produce new outputs.
		for _, name := range cls.Order() {
			if states[name] != resolver.StateBlocked {
				continue
			}
			unblocked := true
			for _, dep := range g.Dependencies(name) {
				if states[dep] != resolver.StateFresh {
					unblocked = false
					break
				}
			}
			if unblocked {
				states[name] = resolver.StateStale
			}
		}

		var wave []domain.InternedString
		for _, name := range cls.Order() {
			if states[name] != resolver.StateStale || held[name] {
				continue
			}
			ready := true
			for _, dep := range g.Dependencies(name) {
				if states[dep] != resolver.StateFresh {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, name)
			}
		}
		if len(wave) == 0 {
			break
		}
		p.Waves = append(p.Waves, wave)

		for _, name := range wave {
			states[name] = resolver.StateFresh
		}
	}

	return p, nil
}
