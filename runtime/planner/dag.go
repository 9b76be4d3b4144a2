package planner

import (
	"sort"

	rerrors "goa.design/compliance-runtime/runtime/errors"
)

// ExecutionDAG holds the forward and reverse adjacency maps over artifact
// IDs, built once by the planner and never mutated afterwards.
type ExecutionDAG struct {
	// Forward maps an artifact ID to the artifacts it depends on
	// (predecessors / inputs).
	Forward map[string][]string
	// Reverse maps an artifact ID to the artifacts that depend on it
	// (dependents / successors).
	Reverse map[string][]string
}

// Predecessors returns the artifacts id depends on, sorted for determinism.
func (d ExecutionDAG) Predecessors(id string) []string {
	out := append([]string(nil), d.Forward[id]...)
	sort.Strings(out)
	return out
}

// Successors returns the artifacts that depend on id, sorted for
// determinism.
func (d ExecutionDAG) Successors(id string) []string {
	out := append([]string(nil), d.Reverse[id]...)
	sort.Strings(out)
	return out
}

// buildDAG constructs forward/reverse adjacency from the normalised inputs
// already present on each ArtifactDefinition.
func buildDAG(artifactIDs []string, inputsOf func(id string) []string) ExecutionDAG {
	forward := make(map[string][]string, len(artifactIDs))
	reverse := make(map[string][]string, len(artifactIDs))
	for _, id := range artifactIDs {
		forward[id] = nil
		reverse[id] = nil
	}
	for _, id := range artifactIDs {
		deps := inputsOf(id)
		forward[id] = append(forward[id], deps...)
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], id)
		}
	}
	return ExecutionDAG{Forward: forward, Reverse: reverse}
}

// color is used by the DFS cycle detector.
type color int

const (
	white color = iota
	gray
	black
)

// topoSort returns artifact IDs in a valid topological order (predecessors
// before dependents), or a CycleDetected error naming one offending cycle.
// Ties among ready artifacts are broken lexicographically so the order is
// fully deterministic.
func topoSort(dag ExecutionDAG, artifactIDs []string) ([]string, error) {
	if cyc := findCycle(dag, artifactIDs); cyc != nil {
		return nil, rerrors.New(rerrors.CycleDetected, "cycle detected in artifact dependencies").
			WithContext("cycle", cyc)
	}

	inDegree := make(map[string]int, len(artifactIDs))
	for _, id := range artifactIDs {
		inDegree[id] = 0
	}
	for _, id := range artifactIDs {
		for range dag.Forward[id] {
			inDegree[id]++
		}
	}

	var ready []string
	for _, id := range artifactIDs {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range dag.Reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	return order, nil
}

// findCycle runs depth-first search with white/gray/black coloring to find
// one cycle, returned as the ordered list of artifact IDs that form it
// (first == last). Returns nil if the graph is acyclic.
func findCycle(dag ExecutionDAG, artifactIDs []string) []string {
	colors := make(map[string]color, len(artifactIDs))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		path = append(path, id)
		deps := append([]string(nil), dag.Forward[id]...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch colors[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Found the back-edge; extract the cycle from path.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string(nil), path[start:]...), dep)
				return true
			}
		}
		path = path[:len(path)-1]
		colors[id] = black
		return false
	}

	ids := append([]string(nil), artifactIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if colors[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
