package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/internal/testsupport"
	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/planner"
	"goa.design/compliance-runtime/runtime/runbook"
)

func schemaV(name string, major, minor, patch int) message.Schema {
	return message.Schema{Name: name, Major: major, Minor: minor, Patch: patch}
}

func newRegistry() *component.Registry {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:    "files",
		Schemas: []message.Schema{schemaV("raw", 1, 0, 0), schemaV("raw", 1, 1, 0)},
	})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{schemaV("raw", 1, 0, 0), schemaV("raw", 1, 1, 0)},
		Outputs: []message.Schema{schemaV("findings", 2, 0, 0)},
	})
	return reg
}

func TestPlanLinearChainResolvesSchemas(t *testing.T) {
	rb := runbook.Runbook{
		Name: "linear",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
			"result": {Inputs: []string{"source"}, Process: &runbook.ProcessConfig{Type: "analyse"}, Output: true},
		},
	}

	plan, err := planner.Plan(rb, newRegistry())
	require.NoError(t, err)

	require.Equal(t, []string{"source"}, plan.DAG.Predecessors("result"))
	require.Equal(t, schemaV("raw", 1, 1, 0), plan.ArtifactSchemas["source"].OutputSchema)
	require.Equal(t, schemaV("findings", 2, 0, 0), plan.ArtifactSchemas["result"].OutputSchema)
	require.True(t, plan.ArtifactSchemas["result"].HasInput)
	require.Equal(t, schemaV("raw", 1, 1, 0), plan.ArtifactSchemas["result"].InputSchema)
}

func TestPlanDetectsCycle(t *testing.T) {
	rb := runbook.Runbook{
		Name: "cyclic",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"a": {Inputs: []string{"b"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
			"b": {Inputs: []string{"a"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
		},
	}

	_, err := planner.Plan(rb, newRegistry())
	require.Error(t, err)
	kind, ok := rerrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rerrors.CycleDetected, kind)
}

func TestPlanRejectsUnknownInputReference(t *testing.T) {
	rb := runbook.Runbook{
		Name: "dangling",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"result": {Inputs: []string{"missing"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
		},
	}

	_, err := planner.Plan(rb, newRegistry())
	require.Error(t, err)
	kind, ok := rerrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rerrors.ConfigurationError, kind)
}

func TestPlanAliasCollisionPicksLexicographicallySmallest(t *testing.T) {
	rb := runbook.Runbook{
		Name: "aliased",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
		},
		Aliases: map[string]string{"zeta": "source", "alpha": "source"},
	}

	plan, err := planner.Plan(rb, newRegistry())
	require.NoError(t, err)
	require.Equal(t, "alpha", plan.ReversedAliases["source"])
}

func TestPlanSchemaIncompatibleWhenNoSharedName(t *testing.T) {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:    "files",
		Schemas: []message.Schema{schemaV("raw", 1, 0, 0)},
	})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{schemaV("other", 1, 0, 0)},
		Outputs: []message.Schema{schemaV("findings", 1, 0, 0)},
	})

	rb := runbook.Runbook{
		Name: "incompatible",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
			"result": {Inputs: []string{"source"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
		},
	}

	_, err := planner.Plan(rb, reg)
	require.Error(t, err)
	kind, ok := rerrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rerrors.SchemaIncompatible, kind)
}

func TestPlanAppliesConfigDefaults(t *testing.T) {
	rb := runbook.Runbook{
		Name: "defaults",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
		},
	}

	plan, err := planner.Plan(rb, newRegistry())
	require.NoError(t, err)
	require.Equal(t, runbook.DefaultMaxConcurrency, plan.Runbook.Config.MaxConcurrency)
	require.Equal(t, float64(runbook.DefaultTimeoutSeconds), plan.Runbook.Config.Timeout)
}
