package planner

import (
	"sort"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/runbook"
)

// nameVersions groups a flat schema list by name, for set intersection.
type nameVersions map[string][]message.Schema

func groupByName(schemas []message.Schema) nameVersions {
	out := make(nameVersions)
	for _, s := range schemas {
		out[s.Name] = append(out[s.Name], s)
	}
	return out
}

// resolveSchemas computes the per-artifact pinned input/output schema pair
// in forward topological order (predecessors before dependents), per §4.2
// step 5. Passthrough artifacts (no Process) inherit their single
// predecessor's resolved output schema identically; other artifacts resolve
// their own factory-declared output schemas against every direct successor's
// factory-declared input schemas.
func resolveSchemas(rb runbook.Runbook, registry *component.Registry, dag ExecutionDAG, order []string) (map[string]ArtifactSchemas, error) {
	resolved := make(map[string]ArtifactSchemas, len(order))

	for _, id := range order {
		def := rb.Artifacts[id]

		var out ArtifactSchemas
		switch {
		case def.IsLeaf():
			ownOutputs, err := leafOutputSchemas(def, registry)
			if err != nil {
				return nil, rerrors.Wrap(rerrors.ConfigurationError, "resolve connector for artifact "+id, err)
			}
			schema, err := resolveAgainstSuccessors(id, ownOutputs, rb, registry, dag)
			if err != nil {
				return nil, err
			}
			out = ArtifactSchemas{OutputSchema: schema}

		case def.Process == nil:
			// Passthrough. Runtime rejects >1 input with NotImplemented;
			// at plan time we still need a deterministic output schema, so
			// a multi-input passthrough inherits from its
			// lexicographically smallest-ID predecessor (see DESIGN.md).
			preds := append([]string(nil), def.Inputs...)
			sort.Strings(preds)
			predSchema := resolved[preds[0]].OutputSchema
			schema, err := resolveAgainstSuccessors(id, nameVersions{predSchema.Name: {predSchema}}, rb, registry, dag)
			if err != nil {
				return nil, err
			}
			out = ArtifactSchemas{OutputSchema: schema}
			if len(preds) == 1 {
				out.InputSchema, out.HasInput = predSchema, true
			}

		default:
			ownOutputs, err := processorOutputSchemas(def, registry)
			if err != nil {
				return nil, rerrors.Wrap(rerrors.ConfigurationError, "resolve processor for artifact "+id, err)
			}
			schema, err := resolveAgainstSuccessors(id, ownOutputs, rb, registry, dag)
			if err != nil {
				return nil, err
			}
			out = ArtifactSchemas{OutputSchema: schema}
			if len(def.Inputs) == 1 {
				out.InputSchema, out.HasInput = resolved[def.Inputs[0]].OutputSchema, true
			}
			if err := validateOwnInputs(id, def, resolved, registry); err != nil {
				return nil, err
			}
		}

		resolved[id] = out
	}

	return resolved, nil
}

func leafOutputSchemas(def runbook.ArtifactDefinition, registry *component.Registry) (nameVersions, error) {
	factory, err := registry.ConnectorFactory(def.Source.Type)
	if err != nil {
		return nil, err
	}
	return groupByName(factory.GetOutputSchemas()), nil
}

func processorOutputSchemas(def runbook.ArtifactDefinition, registry *component.Registry) (nameVersions, error) {
	factory, err := registry.ProcessorFactory(def.Process.Type)
	if err != nil {
		return nil, err
	}
	return groupByName(factory.GetOutputSchemas()), nil
}

// resolveAgainstSuccessors picks the single resolved output schema for
// artifactID given its own candidate output schemas (ownOutputs) and the
// declared input schemas of every direct successor's processor. With zero
// successors, it picks the highest version of the lexicographically
// smallest schema name ownOutputs offers (there is nothing to negotiate
// against).
func resolveAgainstSuccessors(artifactID string, ownOutputs nameVersions, rb runbook.Runbook, registry *component.Registry, dag ExecutionDAG) (message.Schema, error) {
	successors := dag.Successors(artifactID)
	if len(successors) == 0 {
		return pickOwnBest(ownOutputs), nil
	}

	candidateNames := sortedNameKeys(ownOutputs)

	// Intersect candidate names and, per name, candidate versions, across
	// every successor's declared input schemas.
	survivingVersions := make(map[string][]message.Schema, len(candidateNames))
	for _, name := range candidateNames {
		survivingVersions[name] = ownOutputs[name]
	}

	for _, succID := range successors {
		succDef := rb.Artifacts[succID]
		if succDef.Process == nil {
			// Passthrough successors accept whatever their predecessor
			// emits; they do not constrain the schema negotiation.
			continue
		}
		factory, err := registry.ProcessorFactory(succDef.Process.Type)
		if err != nil {
			return message.Schema{}, err
		}
		succInputs := groupByName(factory.GetInputSchemas())

		for _, name := range candidateNames {
			succVersions, ok := succInputs[name]
			if !ok {
				delete(survivingVersions, name)
				continue
			}
			survivingVersions[name] = intersectVersions(survivingVersions[name], succVersions)
		}
	}

	names := make([]string, 0, len(survivingVersions))
	for name, versions := range survivingVersions {
		if len(versions) > 0 {
			names = append(names, name)
		}
	}
	if len(survivingVersions) == 0 {
		return message.Schema{}, rerrors.Newf(rerrors.SchemaIncompatible,
			"artifact %q has no schema name shared with any successor's declared inputs", artifactID).
			WithContext("artifact", artifactID)
	}
	if len(names) == 0 {
		// Names are shared but no version survived: report the mismatch below.
		names = sortedNameKeys(nameVersions(survivingVersions))
	}
	sort.Strings(names)
	chosenName := names[0]
	versions := survivingVersions[chosenName]
	if len(versions) == 0 {
		return message.Schema{}, rerrors.Newf(rerrors.SchemaVersionMismatch,
			"artifact %q: no overlapping version for schema %q between offered and required sets", artifactID, chosenName).
			WithContext("artifact", artifactID).
			WithContext("offered", ownOutputs[chosenName])
	}
	return message.MaxVersion(versions), nil
}

func pickOwnBest(ownOutputs nameVersions) message.Schema {
	names := sortedNameKeys(ownOutputs)
	return message.MaxVersion(ownOutputs[names[0]])
}

func sortedNameKeys(nv nameVersions) []string {
	out := make([]string, 0, len(nv))
	for name := range nv {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// intersectVersions returns the schemas present (by full value) in both a
// and b.
func intersectVersions(a, b []message.Schema) []message.Schema {
	set := make(map[message.Schema]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []message.Schema
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// validateOwnInputs re-validates invariant 4 for a non-passthrough derived
// artifact: its resolved predecessors' output schemas must each satisfy one
// of its own processor's declared input schema requirements. This catches
// the case where a predecessor's resolved schema (chosen to satisfy some
// other successor) does not in fact satisfy this one.
func validateOwnInputs(id string, def runbook.ArtifactDefinition, resolved map[string]ArtifactSchemas, registry *component.Registry) error {
	factory, err := registry.ProcessorFactory(def.Process.Type)
	if err != nil {
		return err
	}
	accepted := groupByName(factory.GetInputSchemas())
	for _, pred := range def.Inputs {
		predSchema := resolved[pred].OutputSchema
		versions, ok := accepted[predSchema.Name]
		if !ok {
			return rerrors.Newf(rerrors.SchemaIncompatible,
				"artifact %q: predecessor %q offers schema %q which processor %q does not declare",
				id, pred, predSchema.Name, def.Process.Type)
		}
		found := false
		for _, v := range versions {
			if v.Equal(predSchema) {
				found = true
				break
			}
		}
		if !found {
			return rerrors.Newf(rerrors.SchemaVersionMismatch,
				"artifact %q: predecessor %q resolved to %s which is not among processor %q's accepted versions for schema %q",
				id, pred, predSchema.String(), def.Process.Type, predSchema.Name)
		}
	}
	return nil
}
