// Package local implements the Backend port with a local process
// runner. It is the reference backend; cluster adapters satisfy the
// same contract.
package local

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.strandlab.net/floe/internal/core/domain"
	"go.strandlab.net/floe/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*Backend)(nil)

// submission tracks one running script.
type submission struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    ports.BackendState
	exitCode int
	reason   string
}

func (s *submission) status() ports.BackendStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.BackendStatus{State: s.state, ExitCode: s.exitCode, Reason: s.reason}
}

func (s *submission) transition(state ports.BackendState, exitCode int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.exitCode = exitCode
	s.reason = reason
}

// Backend runs execution specs as local shell processes. Submissions
// are tracked in memory only; after a process restart every previous
// submission id reports Unknown, exactly like a cluster scheduler that
// lost its queue.
type Backend struct {
	log ports.Logger

	mu   sync.Mutex
	subs map[domain.SubmissionID]*submission
}

// New creates a local Backend.
func New(log ports.Logger) *Backend {
	return &Backend{
		log:  log,
		subs: make(map[domain.SubmissionID]*submission),
	}
}

// OptionDefaults lists the options the local runner understands. It
// accepts the common resource hints so declarations stay portable to
// cluster backends, but only shell matters locally.
func (b *Backend) OptionDefaults() map[string]string {
	return map[string]string{
		"shell":    "/bin/sh",
		"cores":    "",
		"memory":   "",
		"walltime": "",
	}
}

// Submit starts the target's script and returns immediately with a
// fresh submission id. The process outcome is retrieved with Status.
func (b *Backend) Submit(ctx context.Context, target *domain.Target) (domain.SubmissionID, error) {
	if strings.TrimSpace(target.Spec.Script) == "" {
		return "", zerr.With(ports.ErrSubmissionRejected, "reason", "empty script")
	}

	shell := target.Options["shell"]
	if shell == "" {
		shell = "/bin/sh"
	}

	// The script outlives the Submit call; it gets its own context so
	// a submit timeout does not kill the work.
	runCtx, cancel := context.WithCancel(context.Background())

	//nolint:gosec // The script is the user's declared workload
	cmd := exec.CommandContext(runCtx, shell, "-c", target.Spec.Script)
	cmd.Dir = target.Spec.WorkingDir
	cmd.Env = os.Environ()
	cmd.Stdout = &logWriter{log: b.log, target: target.Name.String()}
	cmd.Stderr = &logWriter{log: b.log, target: target.Name.String()}

	if err := cmd.Start(); err != nil {
		cancel()
		return "", zerr.With(zerr.Wrap(ports.ErrSubmissionRejected, err.Error()), "target", target.Name.String())
	}

	id := domain.SubmissionID(uuid.NewString())
	sub := &submission{
		cancel: cancel,
		done:   make(chan struct{}),
		state:  ports.StateRunning,
	}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		defer close(sub.done)
		defer cancel()

		err := cmd.Wait()
		switch {
		case err == nil:
			sub.transition(ports.StateCompleted, 0, "")
		case runCtx.Err() != nil:
			sub.transition(ports.StateFailed, -1, "cancelled")
		default:
			exitCode := -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
			sub.transition(ports.StateFailed, exitCode, err.Error())
		}
	}()

	return id, nil
}

// Status reports the state of a submission. Unrecognised ids yield
// StateUnknown; the backend reports ignorance rather than fabricating
// an answer.
func (b *Backend) Status(_ context.Context, id domain.SubmissionID) (ports.BackendStatus, error) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	b.mu.Unlock()
	if !ok {
		return ports.BackendStatus{State: ports.StateUnknown}, nil
	}
	return sub.status(), nil
}

// Cancel kills the submission's process if it is still running. A
// submission that already completed keeps its completed status.
func (b *Backend) Cancel(_ context.Context, id domain.SubmissionID) error {
	b.mu.Lock()
	sub, ok := b.subs[id]
	b.mu.Unlock()
	if !ok {
		return zerr.With(ports.ErrSubmissionNotFound, "submission_id", string(id))
	}

	sub.cancel()
	<-sub.done
	return nil
}

// logWriter forwards process output lines to the logger.
type logWriter struct {
	log    ports.Logger
	target string
}

func (w *logWriter) Write(p []byte) (int, error) {
	for line := range strings.Lines(strings.TrimSuffix(string(p), "\n")) {
		w.log.Info(strings.TrimSuffix(line, "\n"), "target", w.target)
	}
	return len(p), nil
}
