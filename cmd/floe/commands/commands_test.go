package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.strandlab.net/floe/cmd/floe/commands"
	"go.strandlab.net/floe/internal/adapters/config"
	"go.strandlab.net/floe/internal/adapters/fs"
	"go.strandlab.net/floe/internal/adapters/local"
	"go.strandlab.net/floe/internal/adapters/state"
	"go.strandlab.net/floe/internal/adapters/telemetry"
	"go.strandlab.net/floe/internal/app"
	"go.strandlab.net/floe/internal/build"
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports/mocks"
	"go.strandlab.net/floe/internal/engine/dispatcher"
	"go.strandlab.net/floe/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

// newCLI wires a CLI over real adapters rooted in a temp directory and
// returns it with the workflow path and a buffer capturing output.
func newCLI(t *testing.T, workflow string) (*commands.CLI, string, *bytes.Buffer) {
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
	a := app.New(config.NewFileLoader(), store, res, disp)

	path := filepath.Join(dir, "floe.yaml")
	if err := os.WriteFile(path, []byte("workdir: "+dir+"\n"+workflow), 0o600); err != nil {
		t.Fatalf("failed to write workflow: %v", err)
	}

	cli := commands.New(a)
	var out bytes.Buffer
	cli.SetOut(&out)
	return cli, path, &out
}

const workflow = `targets:
  fetch:
    outputs: ["raw.txt"]
    script: "printf alpha > raw.txt"
  clean:
    inputs: ["raw.txt"]
    outputs: ["clean.txt"]
    script: "tr a-z A-Z < raw.txt > clean.txt"
`

func TestRunCommand(t *testing.T) {
	cli, path, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"run", "-f", path})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "clean.txt"))
	if err != nil {
		t.Fatalf("expected output artifact: %v", err)
	}
	if string(data) != "ALPHA" {
		t.Errorf("unexpected artifact content %q", data)
	}
}

func TestRunCommand_Quiet(t *testing.T) {
	cli, path, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"run", "-q", "-f", path})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "clean.txt")); err != nil {
		t.Errorf("quiet run must still execute targets: %v", err)
	}
}

func TestRunCommand_FailurePropagates(t *testing.T) {
	cli, path, _ := newCLI(t, `targets:
  broken:
    outputs: ["never.txt"]
    script: "false"
`)
	cli.SetArgs([]string{"run", "-f", path})

	err := cli.Execute(context.Background())
	if !errors.Is(err, domain.ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
}

func TestPlanCommand(t *testing.T) {
	cli, path, out := newCLI(t, workflow)
	cli.SetArgs([]string{"plan", "-f", path})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Wave 1:") || !strings.Contains(got, "fetch") {
		t.Errorf("expected fetch in wave 1, got:\n%s", got)
	}
	if !strings.Contains(got, "Wave 2:") || !strings.Contains(got, "clean") {
		t.Errorf("expected clean in wave 2, got:\n%s", got)
	}

	// Planning must not run anything.
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "raw.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("plan must not execute scripts")
	}
}

func TestPlanCommand_NothingToDo(t *testing.T) {
	cli, path, out := newCLI(t, workflow)
	cli.SetArgs([]string{"run", "-f", path})
	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cli.SetArgs([]string{"plan", "-f", path})
	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing to do") {
		t.Errorf("expected nothing-to-do message, got:\n%s", out.String())
	}
}

func TestStatusCommand(t *testing.T) {
	cli, path, out := newCLI(t, workflow)
	cli.SetArgs([]string{"status", "-f", path})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "TARGET") {
		t.Errorf("expected table header, got:\n%s", got)
	}
	if !strings.Contains(got, "fetch") || !strings.Contains(got, "Stale") {
		t.Errorf("expected fetch listed Stale, got:\n%s", got)
	}
	if !strings.Contains(got, "NeverRun") {
		t.Errorf("expected NeverRun run status, got:\n%s", got)
	}
}

func TestRetryCommand_RequiresTarget(t *testing.T) {
	cli, _, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"retry"})

	if err := cli.Execute(context.Background()); err == nil {
		t.Fatal("expected argument error, got nil")
	}
}

func TestRetryCommand_UnknownTarget(t *testing.T) {
	cli, path, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"retry", "-f", path, "missing"})

	err := cli.Execute(context.Background())
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestCancelCommand_NoInFlight(t *testing.T) {
	cli, path, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"cancel", "-f", path})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("cancel with nothing in flight should succeed, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cli, _, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"version"})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if build.Version == "" {
		t.Error("build version must not be empty")
	}
}

func TestRootCommand_Help(t *testing.T) {
	cli, _, _ := newCLI(t, workflow)
	cli.SetArgs([]string{"--help"})

	if err := cli.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
