package domain_test

import (
	"testing"
	"time"

	"go.strandlab.net/floe/internal/core/domain"
)

func TestRunStatus_Lifecycle(t *testing.T) {
	inFlight := []domain.RunStatus{domain.StatusSubmitted, domain.StatusRunning}
	for _, s := range inFlight {
		if !s.InFlight() {
			t.Errorf("%s should be in flight", s)
		}
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}

	// Unknown is terminal for the submission it describes: the engine
	// stops acting on it until the user reconciles explicitly.
	terminal := []domain.RunStatus{domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled, domain.StatusUnknown}
	for _, s := range terminal {
		if s.InFlight() {
			t.Errorf("%s should not be in flight", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	if domain.StatusNeverRun.InFlight() || domain.StatusNeverRun.Terminal() {
		t.Error("NeverRun should be neither in flight nor terminal")
	}
}

func TestFingerprint_Comparisons(t *testing.T) {
	now := time.Now()
	fp := domain.Fingerprint{Exists: true, Digest: 42, ModTime: now}

	if fp.Changed(42) {
		t.Error("same digest should not report a change")
	}
	if !fp.Changed(41) {
		t.Error("different digest should report a change")
	}

	missing := domain.Fingerprint{}
	if !missing.Changed(42) {
		t.Error("missing artifact always counts as changed")
	}

	older := domain.Fingerprint{Exists: true, ModTime: now.Add(-time.Hour)}
	if !fp.NewerThan(older) {
		t.Error("expected fp to be newer than older")
	}
	if older.NewerThan(fp) {
		t.Error("older should not be newer than fp")
	}
}
