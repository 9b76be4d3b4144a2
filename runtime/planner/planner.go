// Package planner builds an immutable ExecutionPlan from a Runbook: the
// artifact DAG, acyclicity validation, per-edge schema version resolution,
// and the alias reverse-index.
package planner

import (
	"sort"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/runbook"
)

// ArtifactSchemas pins the input (if any) and output schema versions
// resolved for one artifact at plan time.
type ArtifactSchemas struct {
	// InputSchema is the resolved output schema inherited from this
	// artifact's single predecessor. Unset (zero value, check HasInput) for
	// leaf artifacts and for derived artifacts with more than one
	// predecessor, where no single input schema is well-defined.
	InputSchema  message.Schema
	HasInput     bool
	OutputSchema message.Schema
}

// ExecutionPlan is the planner's immutable product: a Runbook, its DAG,
// resolved per-artifact schema versions, and the alias reverse-index.
type ExecutionPlan struct {
	Runbook         runbook.Runbook
	DAG             ExecutionDAG
	ArtifactSchemas map[string]ArtifactSchemas
	ReversedAliases map[string]string // artifactID -> alias name
}

// Plan validates rb against registry and produces an ExecutionPlan, or
// fails fast with a ConfigurationError / CycleDetected / SchemaIncompatible /
// SchemaVersionMismatch error.
func Plan(rb runbook.Runbook, registry *component.Registry) (*ExecutionPlan, error) {
	rb = rb.WithDefaults()

	if err := validateReferentialIntegrity(rb); err != nil {
		return nil, err
	}

	artifactIDs := sortedKeys(rb.Artifacts)
	dag := buildDAG(artifactIDs, func(id string) []string {
		return append([]string(nil), rb.Artifacts[id].Inputs...)
	})

	order, err := topoSort(dag, artifactIDs)
	if err != nil {
		return nil, err
	}

	schemas, err := resolveSchemas(rb, registry, dag, order)
	if err != nil {
		return nil, err
	}

	reversed, err := reverseAliases(rb)
	if err != nil {
		return nil, err
	}

	return &ExecutionPlan{
		Runbook:         rb,
		DAG:             dag,
		ArtifactSchemas: schemas,
		ReversedAliases: reversed,
	}, nil
}

func sortedKeys(artifacts map[string]runbook.ArtifactDefinition) []string {
	ids := make([]string, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// validateReferentialIntegrity checks invariants 1, 3, 5 from the data
// model: every input ID exists, leaves/derived are well-formed, and aliases
// resolve to real artifacts.
func validateReferentialIntegrity(rb runbook.Runbook) error {
	for id, def := range rb.Artifacts {
		if def.Source != nil && len(def.Inputs) > 0 {
			return rerrors.Newf(rerrors.ConfigurationError, "artifact %q has both source and inputs", id)
		}
		if def.Source == nil && len(def.Inputs) == 0 {
			return rerrors.Newf(rerrors.ConfigurationError, "artifact %q has neither source nor inputs", id)
		}
		for _, dep := range def.Inputs {
			if _, ok := rb.Artifacts[dep]; !ok {
				return rerrors.Newf(rerrors.ConfigurationError, "artifact %q references unknown input %q", id, dep)
			}
		}
	}
	for alias, target := range rb.Aliases {
		if _, ok := rb.Artifacts[target]; !ok {
			return rerrors.Newf(rerrors.ConfigurationError, "alias %q targets unknown artifact %q", alias, target)
		}
	}
	return nil
}

// reverseAliases inverts rb.Aliases into artifactID -> alias, breaking
// collisions by keeping the lexicographically smallest alias for each
// target, for deterministic output regardless of map iteration order.
func reverseAliases(rb runbook.Runbook) (map[string]string, error) {
	out := make(map[string]string, len(rb.Aliases))
	for alias, target := range rb.Aliases {
		current, ok := out[target]
		if !ok || alias < current {
			out[target] = alias
		}
	}
	return out, nil
}
