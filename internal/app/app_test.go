package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.strandlab.net/floe/internal/adapters/config"
	"go.strandlab.net/floe/internal/adapters/fs"
	"go.strandlab.net/floe/internal/adapters/local"
	"go.strandlab.net/floe/internal/adapters/state"
	"go.strandlab.net/floe/internal/adapters/telemetry"
	"go.strandlab.net/floe/internal/app"
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports/mocks"
	"go.strandlab.net/floe/internal/engine/dispatcher"
	"go.strandlab.net/floe/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

// fixture wires the App to real adapters rooted in a temp directory,
// with the local process backend actually executing scripts.
type fixture struct {
	dir   string
	app   *app.App
	store *state.Store
}

func newFixture(t *testing.T, workflow string) *fixture {
	t.Helper()
	dir := t.TempDir()

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	store, err := state.NewStore(filepath.Join(dir, ".floe", "state.json"), log)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	fp := fs.NewFingerprinter(dir)
	res := resolver.New(fp, log)
	disp := dispatcher.New(local.New(log), store, fp, res, log, telemetry.NewNoop(), dispatcher.Options{
		PollInterval:   5 * time.Millisecond,
		RetryBaseDelay: time.Millisecond,
	})

	f := &fixture{
		dir:   dir,
		app:   app.New(config.NewFileLoader(), store, res, disp),
		store: store,
	}
	f.writeWorkflow(t, workflow)
	return f
}

func (f *fixture) writeWorkflow(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(f.workflowPath(), []byte("workdir: "+f.dir+"\n"+content), 0o600); err != nil {
		t.Fatalf("failed to write workflow: %v", err)
	}
}

func (f *fixture) workflowPath() string {
	return filepath.Join(f.dir, "floe.yaml")
}

func (f *fixture) readArtifact(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		t.Fatalf("expected artifact %s: %v", name, err)
	}
	return string(data)
}

const pipelineWorkflow = `targets:
  fetch:
    outputs: ["raw.txt"]
    script: "printf alpha > raw.txt"
  clean:
    inputs: ["raw.txt"]
    outputs: ["clean.txt"]
    script: "tr a-z A-Z < raw.txt > clean.txt"
  archive:
    inputs: ["raw.txt"]
    outputs: ["archive.txt"]
    script: "cp raw.txt archive.txt"
`

func TestApp_RunWholeWorkflow(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.readArtifact(t, "clean.txt"); got != "ALPHA" {
		t.Errorf("unexpected clean.txt content %q", got)
	}
	if got := f.readArtifact(t, "archive.txt"); got != "alpha" {
		t.Errorf("unexpected archive.txt content %q", got)
	}

	rec, err := f.store.Get("clean")
	if err != nil || rec == nil {
		t.Fatalf("expected a record for clean, got %v, %v", rec, err)
	}
	if rec.Status != domain.StatusCompleted {
		t.Errorf("expected Completed, got %s (%s)", rec.Status, rec.LastError)
	}
}

func TestApp_RunRestrictsToRequestedSubtree(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	if err := f.app.Run(context.Background(), f.workflowPath(), []string{"clean"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.readArtifact(t, "clean.txt")
	if _, err := os.Stat(filepath.Join(f.dir, "archive.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("archive is outside the requested subtree, expected it not to run")
	}
}

func TestApp_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := f.store.Get("fetch")
	if err != nil || first == nil {
		t.Fatalf("expected a record for fetch: %v", err)
	}

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.store.Get("fetch")
	if err != nil || second == nil {
		t.Fatalf("expected a record for fetch: %v", err)
	}

	if first.SubmissionID != second.SubmissionID {
		t.Error("a fresh target must not be resubmitted")
	}
}

func TestApp_RerunAfterInputChange(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rewriting raw.txt by hand invalidates fetch (its output changed)
	// and everything downstream of it.
	if err := os.WriteFile(filepath.Join(f.dir, "raw.txt"), []byte("beta"), 0o600); err != nil {
		t.Fatalf("failed to rewrite artifact: %v", err)
	}

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.readArtifact(t, "clean.txt"); got != "ALPHA" {
		t.Errorf("expected clean.txt rebuilt from refetched input, got %q", got)
	}
}

func TestApp_RunFailurePropagates(t *testing.T) {
	f := newFixture(t, `targets:
  broken:
    outputs: ["never.txt"]
    script: "exit 7"
`)

	err := f.app.Run(context.Background(), f.workflowPath(), nil)
	if !errors.Is(err, domain.ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}

	rec, err := f.store.Get("broken")
	if err != nil || rec == nil {
		t.Fatalf("expected a record for broken: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("expected Failed, got %s", rec.Status)
	}
}

func TestApp_Status(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	rows, err := f.app.Status(context.Background(), f.workflowPath(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Target != "fetch" || rows[0].State != resolver.StateStale {
		t.Errorf("expected fetch Stale first, got %+v", rows[0])
	}
	if rows[0].RunStatus != domain.StatusNeverRun {
		t.Errorf("expected NeverRun before any run, got %s", rows[0].RunStatus)
	}

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err = f.app.Status(context.Background(), f.workflowPath(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range rows {
		if row.State != resolver.StateFresh {
			t.Errorf("%s: expected Fresh after run, got %s", row.Target, row.State)
		}
		if row.RunStatus != domain.StatusCompleted {
			t.Errorf("%s: expected Completed, got %s", row.Target, row.RunStatus)
		}
	}
}

func TestApp_Plan(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	p, err := f.app.Plan(context.Background(), f.workflowPath(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Waves) != 2 {
		t.Fatalf("expected 2 waves, got %d", len(p.Waves))
	}
	if len(p.Waves[0]) != 1 || p.Waves[0][0].String() != "fetch" {
		t.Errorf("wave 1: expected [fetch], got %v", p.Waves[0])
	}
	if len(p.Waves[1]) != 2 {
		t.Errorf("wave 2: expected clean and archive, got %v", p.Waves[1])
	}

	// Planning must not execute anything.
	if _, err := os.Stat(filepath.Join(f.dir, "raw.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("plan must not run scripts")
	}
}

func TestApp_RetryValidatesTarget(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	err := f.app.Retry(context.Background(), f.workflowPath(), "no-such-target")
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestApp_RetryThenRunResubmits(t *testing.T) {
	f := newFixture(t, `targets:
  flaky:
    outputs: ["flaky.txt"]
    script: "test -e marker && printf ok > flaky.txt || exit 1"
`)

	if err := f.app.Run(context.Background(), f.workflowPath(), nil); !errors.Is(err, domain.ErrRunFailed) {
		t.Fatalf("expected first run to fail, got %v", err)
	}

	// Without a retry the failed record holds the target back.
	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("run with a held target reports nothing to do, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "flaky.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("held target must not have run")
	}

	if err := os.WriteFile(filepath.Join(f.dir, "marker"), nil, 0o600); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}
	if err := f.app.Retry(context.Background(), f.workflowPath(), "flaky"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if err := f.app.Run(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if got := f.readArtifact(t, "flaky.txt"); got != "ok" {
		t.Errorf("unexpected artifact content %q", got)
	}
}

func TestApp_PruneDropsUndeclaredRecords(t *testing.T) {
	f := newFixture(t, pipelineWorkflow)

	if err := f.store.Update("removed-target", func(rec *domain.RunRecord) error {
		rec.Status = domain.StatusCompleted
		return nil
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	if _, err := f.app.Status(context.Background(), f.workflowPath(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := f.store.Get("removed-target")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Error("record for an undeclared target should have been pruned")
	}
}
