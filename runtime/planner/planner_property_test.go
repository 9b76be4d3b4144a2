package planner_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/compliance-runtime/internal/testsupport"
	"goa.design/compliance-runtime/runtime/component"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/planner"
	"goa.design/compliance-runtime/runtime/runbook"
)

// TestPlanSchemaVersionSelectionPicksMaxOfIntersectionProperty verifies
// Invariant 6 (spec.md §8): for any set of offered/accepted patch versions
// sharing a major.minor, the planner resolves the edge to the maximum
// version present in both sets.
func TestPlanSchemaVersionSelectionPicksMaxOfIntersectionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolved version is the max of the offered/accepted intersection", prop.ForAll(
		func(offeredPatches, acceptedPatches []int) bool {
			offered := dedupSchemas(offeredPatches)
			accepted := dedupSchemas(acceptedPatches)
			if len(offered) == 0 || len(accepted) == 0 {
				return true
			}

			want, ok := maxIntersection(offered, accepted)

			reg := component.NewRegistry()
			reg.RegisterConnector(testsupport.StaticConnectorFactory{Name: "files", Schemas: offered})
			reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
				Name:    "analyse",
				Inputs:  accepted,
				Outputs: []message.Schema{{Name: "findings", Major: 1}},
			})

			rb := runbook.Runbook{
				Name: "prop",
				Artifacts: map[string]runbook.ArtifactDefinition{
					"source": {Source: &runbook.SourceConfig{Type: "files"}},
					"result": {Inputs: []string{"source"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
				},
			}

			plan, err := planner.Plan(rb, reg)
			if !ok {
				return err != nil
			}
			if err != nil {
				return false
			}
			got := plan.ArtifactSchemas["source"].OutputSchema
			return got.Equal(want)
		},
		gen.SliceOf(gen.IntRange(0, 5)),
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}

// TestPlanAcyclicLinearChainsAlwaysPlanProperty exercises acyclicity over
// randomly sized linear chains: a DAG with no back-edges never triggers
// CycleDetected.
func TestPlanAcyclicLinearChainsAlwaysPlanProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a linear chain of any length plans without error", prop.ForAll(
		func(n int) bool {
			reg := newLinearRegistry()
			artifacts := map[string]runbook.ArtifactDefinition{
				"a0": {Source: &runbook.SourceConfig{Type: "files"}},
			}
			for i := 1; i <= n; i++ {
				id := idFor(i)
				prev := idFor(i - 1)
				artifacts[id] = runbook.ArtifactDefinition{
					Inputs:  []string{prev},
					Process: &runbook.ProcessConfig{Type: "analyse"},
				}
			}
			rb := runbook.Runbook{Name: "chain", Artifacts: artifacts}
			_, err := planner.Plan(rb, reg)
			return err == nil
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func idFor(i int) string {
	if i == 0 {
		return "a0"
	}
	return "a" + string(rune('0'+i%10)) + "_" + string(rune('a'+i/10))
}

func newLinearRegistry() *component.Registry {
	s := message.Schema{Name: "raw", Major: 1}
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{Name: "files", Schemas: []message.Schema{s}})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{s},
		Outputs: []message.Schema{s},
	})
	return reg
}

func dedupSchemas(patches []int) []message.Schema {
	seen := make(map[int]bool)
	var out []message.Schema
	for _, p := range patches {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, message.Schema{Name: "raw", Major: 1, Patch: p})
	}
	return out
}

func maxIntersection(offered, accepted []message.Schema) (message.Schema, bool) {
	acceptedSet := make(map[int]bool, len(accepted))
	for _, s := range accepted {
		acceptedSet[s.Patch] = true
	}
	var best message.Schema
	found := false
	for _, s := range offered {
		if !acceptedSet[s.Patch] {
			continue
		}
		if !found || best.Less(s) {
			best = s
			found = true
		}
	}
	return best, found
}
