package domain_test

import (
	"errors"
	"strings"
	"testing"

	"go.strandlab.net/floe/internal/core/domain"
	"go.trai.ch/zerr"
)

func target(name string, inputs, outputs []string) *domain.Target {
	t := &domain.Target{Name: domain.NewInternedString(name)}
	for _, in := range inputs {
		t.Inputs = append(t.Inputs, domain.NewInternedString(in))
	}
	for _, out := range outputs {
		t.Outputs = append(t.Outputs, domain.NewInternedString(out))
	}
	return t
}

func names(in []domain.InternedString) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = n.String()
	}
	return out
}

func TestFromTargets_DuplicateName(t *testing.T) {
	_, err := domain.FromTargets([]*domain.Target{
		target("align", nil, []string{"a.bam"}),
		target("align", nil, []string{"b.bam"}),
	})
	if err == nil {
		t.Fatal("expected error for duplicate target name, got nil")
	}
	if !errors.Is(err, domain.ErrDuplicateTarget) {
		t.Errorf("expected ErrDuplicateTarget, got %v", err)
	}

	var zErr *zerr.Error
	if !errors.As(err, &zErr) {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	if got := zErr.Metadata()["target"]; got != "align" {
		t.Errorf("expected metadata target=align, got %v", got)
	}
}

func TestFromTargets_DuplicateOutput(t *testing.T) {
	_, err := domain.FromTargets([]*domain.Target{
		target("align", nil, []string{"sample.bam"}),
		target("realign", nil, []string{"sample.bam"}),
	})
	if err == nil {
		t.Fatal("expected error for duplicate output, got nil")
	}
	if !errors.Is(err, domain.ErrDuplicateOutput) {
		t.Errorf("expected ErrDuplicateOutput, got %v", err)
	}

	var zErr *zerr.Error
	if !errors.As(err, &zErr) {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if meta["artifact"] != "sample.bam" {
		t.Errorf("expected metadata artifact=sample.bam, got %v", meta["artifact"])
	}
	if meta["first_producer"] != "align" || meta["second_producer"] != "realign" {
		t.Errorf("expected producers align/realign, got %v/%v", meta["first_producer"], meta["second_producer"])
	}
}

func TestFromTargets_Cycle(t *testing.T) {
	_, err := domain.FromTargets([]*domain.Target{
		target("a", []string{"b.out"}, []string{"a.out"}),
		target("b", []string{"a.out"}, []string{"b.out"}),
	})
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}

	var zErr *zerr.Error
	if !errors.As(err, &zErr) {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	cycle, ok := zErr.Metadata()["cycle"].(string)
	if !ok {
		t.Fatal("expected cycle metadata on error")
	}
	if !strings.Contains(cycle, "a") || !strings.Contains(cycle, "b") {
		t.Errorf("expected cycle path naming both targets, got %q", cycle)
	}
}

func TestFromTargets_SelfCycle(t *testing.T) {
	_, err := domain.FromTargets([]*domain.Target{
		target("loop", []string{"loop.out"}, []string{"loop.out"}),
	})
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for self-dependency, got %v", err)
	}
}

func TestFromTargets_Empty(t *testing.T) {
	_, err := domain.FromTargets(nil)
	if !errors.Is(err, domain.ErrNoTargets) {
		t.Errorf("expected ErrNoTargets, got %v", err)
	}
}

func TestGraph_DerivedEdges(t *testing.T) {
	g, err := domain.FromTargets([]*domain.Target{
		target("fetch", nil, []string{"raw.txt"}),
		target("clean", []string{"raw.txt", "config.json"}, []string{"clean.txt"}),
		target("report", []string{"clean.txt"}, []string{"report.html"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := names(g.Dependencies(domain.NewInternedString("clean")))
	if len(deps) != 1 || deps[0] != "fetch" {
		t.Errorf("expected clean to depend on [fetch], got %v", deps)
	}

	dependents := names(g.Dependents(domain.NewInternedString("clean")))
	if len(dependents) != 1 || dependents[0] != "report" {
		t.Errorf("expected clean dependents [report], got %v", dependents)
	}

	// config.json has no producer: it is external, not an error.
	if !g.Unresolved(domain.NewInternedString("config.json")) {
		t.Error("expected config.json to be an unresolved external input")
	}
	if g.Unresolved(domain.NewInternedString("raw.txt")) {
		t.Error("raw.txt has a producer, should not be unresolved")
	}

	producer, ok := g.Producer(domain.NewInternedString("raw.txt"))
	if !ok || producer.String() != "fetch" {
		t.Errorf("expected raw.txt produced by fetch, got %v ok=%v", producer, ok)
	}
}

func TestGraph_TopoOrderBreaksTiesByDeclaration(t *testing.T) {
	// beta and alpha are both ready immediately; declaration order must
	// decide, not map iteration order.
	g, err := domain.FromTargets([]*domain.Target{
		target("beta", nil, []string{"b.out"}),
		target("alpha", nil, []string{"a.out"}),
		target("join", []string{"a.out", "b.out"}, []string{"j.out"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var order []string
	for tg := range g.Walk() {
		order = append(order, tg.Name.String())
	}
	want := []string{"beta", "alpha", "join"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected walk order %v, got %v", want, order)
		}
	}
}

func TestGraph_Endpoints(t *testing.T) {
	g, err := domain.FromTargets([]*domain.Target{
		target("fetch", nil, []string{"raw.txt"}),
		target("clean", []string{"raw.txt"}, []string{"clean.txt"}),
		target("report", []string{"clean.txt"}, []string{"report.html"}),
		target("archive", []string{"clean.txt"}, []string{"archive.tar"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eps := names(g.Endpoints())
	if len(eps) != 2 || eps[0] != "report" || eps[1] != "archive" {
		t.Errorf("expected endpoints [report archive], got %v", eps)
	}
}

func TestGraph_Restrict(t *testing.T) {
	g, err := domain.FromTargets([]*domain.Target{
		target("fetch", nil, []string{"raw.txt"}),
		target("clean", []string{"raw.txt"}, []string{"clean.txt"}),
		target("report", []string{"clean.txt"}, []string{"report.html"}),
		target("archive", []string{"clean.txt"}, []string{"archive.tar"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := g.Restrict([]domain.InternedString{domain.NewInternedString("report")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Len() != 3 {
		t.Errorf("expected 3 targets in subgraph, got %d", sub.Len())
	}
	if _, err := sub.Target(domain.NewInternedString("archive")); err == nil {
		t.Error("archive should not be in the restricted graph")
	}
	if _, err := sub.Target(domain.NewInternedString("fetch")); err != nil {
		t.Errorf("fetch is a transitive dependency of report, expected it kept: %v", err)
	}
}

func TestGraph_RestrictUnknownTarget(t *testing.T) {
	g, err := domain.FromTargets([]*domain.Target{
		target("fetch", nil, []string{"raw.txt"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = g.Restrict([]domain.InternedString{domain.NewInternedString("missing")})
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}
