// Package domain contains the core domain models for the workflow
// dependency graph and its run state.
package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// Graph is the derived dependency DAG over a set of targets. Edges are
// inferred by matching declared inputs against declared outputs, never
// stated directly. A Graph is immutable once built; construction is a
// pure transformation of the declarations.
type Graph struct {
	targets map[InternedString]Target
	order   []InternedString // declaration order

	provides     map[InternedString]InternedString // artifact -> producing target
	dependencies map[InternedString][]InternedString
	dependents   map[InternedString][]InternedString
	unresolved   map[InternedString]bool // inputs with no producer

	topoOrder []InternedString
}

// FromTargets builds the dependency graph from an ordered sequence of
// target declarations.
//
// It fails with ErrDuplicateTarget or ErrDuplicateOutput if names or
// output artifacts collide, and with ErrCycleDetected if the derived
// graph is cyclic. An input with no producing target is not an error;
// it is recorded as unresolved and validated for existence at
// resolution time.
func FromTargets(targets []*Target) (*Graph, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	g := &Graph{
		targets:      make(map[InternedString]Target, len(targets)),
		order:        make([]InternedString, 0, len(targets)),
		provides:     make(map[InternedString]InternedString),
		dependencies: make(map[InternedString][]InternedString),
		dependents:   make(map[InternedString][]InternedString),
		unresolved:   make(map[InternedString]bool),
	}

	for _, t := range targets {
		if _, exists := g.targets[t.Name]; exists {
			return nil, zerr.With(ErrDuplicateTarget, "target", t.Name.String())
		}
		g.targets[t.Name] = *t
		g.order = append(g.order, t.Name)

		for _, out := range t.Outputs {
			if producer, taken := g.provides[out]; taken {
				err := zerr.With(ErrDuplicateOutput, "artifact", out.String())
				err = zerr.With(err, "first_producer", producer.String())
				return nil, zerr.With(err, "second_producer", t.Name.String())
			}
			g.provides[out] = t.Name
		}
	}

	// Derive edges: consumer depends on the producer of each input.
	for _, name := range g.order {
		t := g.targets[name]
		seen := make(map[InternedString]bool)
		for _, in := range t.Inputs {
			producer, ok := g.provides[in]
			if !ok {
				g.unresolved[in] = true
				continue
			}
			if producer == name {
				return nil, zerr.With(ErrCycleDetected, "cycle", name.String()+" -> "+name.String())
			}
			if seen[producer] {
				continue
			}
			seen[producer] = true
			g.dependencies[name] = append(g.dependencies[name], producer)
			g.dependents[producer] = append(g.dependents[producer], name)
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	g.computeTopoOrder()

	return g, nil
}

// checkAcyclic runs a depth-first traversal with three-color marking.
// Meeting an in-progress node on the current path is the cycle
// condition.
func (g *Graph) checkAcyclic() error {
	const (
		unvisited  = 0
		inProgress = 1
		done       = 2
	)
	state := make(map[InternedString]int, len(g.targets))
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		state[u] = inProgress
		path = append(path, u)

		for _, dep := range g.dependencies[u] {
			switch state[dep] {
			case inProgress:
				return g.cycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		state[u] = done
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range g.order {
		if state[name] == unvisited {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleError renders the offending cycle path into the error metadata.
func (g *Graph) cycleError(path []InternedString, dep InternedString) error {
	start := slices.Index(path, dep)
	cycle := ""
	for _, node := range path[start:] {
		cycle += node.String() + " -> "
	}
	cycle += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cycle)
}

// computeTopoOrder runs Kahn's algorithm. Ties among targets with no
// remaining unresolved dependencies are broken by declaration order, so
// scheduling is deterministic across runs with identical declarations.
func (g *Graph) computeTopoOrder() {
	declIndex := make(map[InternedString]int, len(g.order))
	for i, name := range g.order {
		declIndex[name] = i
	}

	inDegree := make(map[InternedString]int, len(g.targets))
	for _, name := range g.order {
		inDegree[name] = len(g.dependencies[name])
	}

	var ready []InternedString
	push := func(name InternedString) {
		at, _ := slices.BinarySearchFunc(ready, name, func(a, b InternedString) int {
			return declIndex[a] - declIndex[b]
		})
		ready = slices.Insert(ready, at, name)
	}

	for _, name := range g.order {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	g.topoOrder = make([]InternedString, 0, len(g.targets))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		g.topoOrder = append(g.topoOrder, name)

		for _, dep := range g.dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				push(dep)
			}
		}
	}
}

// Walk yields targets in topological order, dependencies first.
func (g *Graph) Walk() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, name := range g.topoOrder {
			if !yield(g.targets[name]) {
				return
			}
		}
	}
}

// Target returns the target with the given name.
func (g *Graph) Target(name InternedString) (Target, error) {
	t, ok := g.targets[name]
	if !ok {
		return Target{}, zerr.With(ErrTargetNotFound, "target", name.String())
	}
	return t, nil
}

// Len returns the number of targets in the graph.
func (g *Graph) Len() int {
	return len(g.targets)
}

// Names returns all target names in declaration order.
func (g *Graph) Names() []InternedString {
	return slices.Clone(g.order)
}

// Dependencies returns the targets the named target depends on.
func (g *Graph) Dependencies(name InternedString) []InternedString {
	return g.dependencies[name]
}

// Dependents returns the targets that depend on the named target.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Producer returns the target producing the given artifact, if any.
func (g *Graph) Producer(artifact InternedString) (InternedString, bool) {
	p, ok := g.provides[artifact]
	return p, ok
}

// Unresolved reports whether the artifact has no producing target and
// is therefore expected to exist externally.
func (g *Graph) Unresolved(artifact InternedString) bool {
	return g.unresolved[artifact]
}

// Endpoints returns the targets no other target depends on, in
// declaration order. These are the default scheduling roots.
func (g *Graph) Endpoints() []InternedString {
	var eps []InternedString
	for _, name := range g.order {
		if len(g.dependents[name]) == 0 {
			eps = append(eps, name)
		}
	}
	return eps
}

// Restrict returns the subgraph containing the named targets and their
// transitive dependencies, preserving declaration order.
func (g *Graph) Restrict(names []InternedString) (*Graph, error) {
	keep := make(map[InternedString]bool)
	var mark func(name InternedString) error
	mark = func(name InternedString) error {
		if keep[name] {
			return nil
		}
		if _, ok := g.targets[name]; !ok {
			return zerr.With(ErrTargetNotFound, "target", name.String())
		}
		keep[name] = true
		for _, dep := range g.dependencies[name] {
			if err := mark(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := mark(name); err != nil {
			return nil, err
		}
	}

	sub := make([]*Target, 0, len(keep))
	for _, name := range g.order {
		if keep[name] {
			t := g.targets[name]
			sub = append(sub, &t)
		}
	}
	return FromTargets(sub)
}
