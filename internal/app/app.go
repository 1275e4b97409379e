// Package app implements the application layer for floe.
package app

import (
	"context"

	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.strandlab.net/floe/internal/engine/dispatcher"
	"go.strandlab.net/floe/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// App ties the declaration loader, the engine and the run record store
// together behind the operations the CLI exposes.
type App struct {
	loader     ports.ConfigLoader
	store      ports.RunRecordStore
	resolver   *resolver.Resolver
	dispatcher *dispatcher.Dispatcher
}

// New creates an App.
func New(
	loader ports.ConfigLoader,
	store ports.RunRecordStore,
	res *resolver.Resolver,
	disp *dispatcher.Dispatcher,
) *App {
	return &App{
		loader:     loader,
		store:      store,
		resolver:   res,
		dispatcher: disp,
	}
}

// SetTelemetry swaps the dispatcher's progress sink, e.g. to silence
// progress rendering in quiet mode.
func (a *App) SetTelemetry(tel ports.Telemetry) {
	a.dispatcher.SetTelemetry(tel)
}

// loadGraph builds the full graph from the declaration file, prunes
// run records that no longer correspond to a declared target, and
// restricts to the requested targets plus their transitive
// dependencies. With no targets requested, the graph's endpoints are
// scheduled, so a bare run drives the whole workflow.
func (a *App) loadGraph(path string, targetNames []string) (*domain.Graph, error) {
	targets, err := a.loader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load workflow")
	}

	full, err := domain.FromTargets(targets)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, full.Len())
	for _, name := range full.Names() {
		keep[name.String()] = true
	}
	if err := a.store.Prune(keep); err != nil {
		return nil, err
	}

	var roots []domain.InternedString
	if len(targetNames) == 0 {
		roots = full.Endpoints()
	} else {
		for _, name := range targetNames {
			roots = append(roots, domain.NewInternedString(name))
		}
	}
	return full.Restrict(roots)
}

// Run schedules and executes the requested targets.
func (a *App) Run(ctx context.Context, path string, targetNames []string) error {
	g, err := a.loadGraph(path, targetNames)
	if err != nil {
		return err
	}
	return a.dispatcher.Run(ctx, g)
}

// Plan reports what Run would submit, without side effects.
func (a *App) Plan(ctx context.Context, path string, targetNames []string) (*dispatcher.Plan, error) {
	g, err := a.loadGraph(path, targetNames)
	if err != nil {
		return nil, err
	}
	return a.dispatcher.Plan(ctx, g)
}

// StatusRow is one line of the engine's observable surface: the full
// read-only snapshot a presentation layer may rely on.
type StatusRow struct {
	Target       string
	State        resolver.State
	RunStatus    domain.RunStatus
	SubmissionID domain.SubmissionID
	LastError    string
}

// Status classifies the requested targets and joins the result with
// their run records, in topological order.
func (a *App) Status(ctx context.Context, path string, targetNames []string) ([]StatusRow, error) {
	g, err := a.loadGraph(path, targetNames)
	if err != nil {
		return nil, err
	}
	records, err := a.store.All()
	if err != nil {
		return nil, err
	}
	cls, err := a.resolver.Resolve(g, records)
	if err != nil {
		return nil, err
	}

	rows := make([]StatusRow, 0, g.Len())
	for _, name := range cls.Order() {
		rec := records[name.String()]
		status := rec.Status
		if status == "" {
			status = domain.StatusNeverRun
		}
		rows = append(rows, StatusRow{
			Target:       name.String(),
			State:        cls.State(name),
			RunStatus:    status,
			SubmissionID: rec.SubmissionID,
			LastError:    rec.LastError,
		})
	}
	return rows, nil
}

// Retry resets a failed, unknown or cancelled target so the next run
// may submit it again.
func (a *App) Retry(ctx context.Context, path, targetName string) error {
	g, err := a.loadGraph(path, nil)
	if err != nil {
		return err
	}
	name := domain.NewInternedString(targetName)
	if _, err := g.Target(name); err != nil {
		return err
	}
	return a.dispatcher.Retry(name)
}

// Resolve accepts a target stuck in Unknown as complete, recording its
// current outputs as the completion state.
func (a *App) Resolve(ctx context.Context, path, targetName string) error {
	g, err := a.loadGraph(path, nil)
	if err != nil {
		return err
	}
	return a.dispatcher.MarkResolved(g, domain.NewInternedString(targetName))
}

// Cancel issues best-effort cancels for every in-flight submission.
func (a *App) Cancel(ctx context.Context, path string) error {
	g, err := a.loadGraph(path, nil)
	if err != nil {
		return err
	}
	return a.dispatcher.CancelAll(ctx, g)
}
