package yamlload_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/internal/testsupport"
	"goa.design/compliance-runtime/runtime/component"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/planner"
	"goa.design/compliance-runtime/runtime/runbook"
	"goa.design/compliance-runtime/runtime/runbook/yamlload"
)

const validRunbookYAML = `
name: pii-scan
description: scan extracted files for PII patterns
config:
  maxConcurrency: 2
  timeout: 120
artifacts:
  raw_files:
    source:
      type: files
      properties:
        root: /data
  findings:
    inputs: raw_files
    process:
      type: analyse
    output: true
aliases:
  result: findings
`

func TestLoadParsesValidRunbook(t *testing.T) {
	rb, err := yamlload.Load([]byte(validRunbookYAML))
	require.NoError(t, err)
	require.Equal(t, "pii-scan", rb.Name)
	require.Equal(t, 2, rb.Config.MaxConcurrency)
	require.Equal(t, 120.0, rb.Config.Timeout)
	require.Len(t, rb.Artifacts, 2)

	raw := rb.Artifacts["raw_files"]
	require.True(t, raw.IsLeaf())
	require.Equal(t, "files", raw.Source.Type)
	require.Equal(t, "/data", raw.Source.Properties["root"])

	findings := rb.Artifacts["findings"]
	require.False(t, findings.IsLeaf())
	require.Equal(t, []string{"raw_files"}, findings.Inputs)
	require.Equal(t, "analyse", findings.Process.Type)
	require.True(t, findings.Output)

	require.Equal(t, "findings", rb.Aliases["result"])
}

func TestLoadAppliesDefaultsWhenConfigOmitted(t *testing.T) {
	rb, err := yamlload.Load([]byte(`
name: bare
artifacts:
  a:
    source:
      type: files
`))
	require.NoError(t, err)
	require.Equal(t, runbook.DefaultMaxConcurrency, rb.Config.MaxConcurrency)
	require.Equal(t, float64(runbook.DefaultTimeoutSeconds), rb.Config.Timeout)
}

func TestLoadNormalisesSingleStringInputToSlice(t *testing.T) {
	rb, err := yamlload.Load([]byte(`
name: single-input
artifacts:
  a:
    source:
      type: files
  b:
    inputs: a
    process:
      type: analyse
`))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, rb.Artifacts["b"].Inputs)
}

func TestLoadRejectsMissingName(t *testing.T) {
	_, err := yamlload.Load([]byte(`
artifacts:
  a:
    source:
      type: files
`))
	require.Error(t, err)
}

func TestLoadRejectsArtifactWithBothSourceAndInputs(t *testing.T) {
	_, err := yamlload.Load([]byte(`
name: conflict
artifacts:
  a:
    source:
      type: files
  b:
    source:
      type: files
    inputs: a
`))
	require.Error(t, err)
}

func TestLoadRejectsArtifactWithNeitherSourceNorInputs(t *testing.T) {
	_, err := yamlload.Load([]byte(`
name: empty-artifact
artifacts:
  a: {}
`))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := yamlload.Load([]byte("name: [unterminated"))
	require.Error(t, err)
}

// TestPlanningRunbookThenItsYAMLRoundTripProducesEqualPlans exercises the
// spec law that a runbook built programmatically and the same runbook
// loaded back from its own YAML serialisation plan identically.
func TestPlanningRunbookThenItsYAMLRoundTripProducesEqualPlans(t *testing.T) {
	programmatic := runbook.Runbook{
		Name: "pii-scan",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"raw_files": {Source: &runbook.SourceConfig{Type: "files", Properties: component.Config{"root": "/data"}}},
			"findings":  {Inputs: []string{"raw_files"}, Process: &runbook.ProcessConfig{Type: "analyse"}, Output: true},
		},
		Aliases: map[string]string{"result": "findings"},
	}

	reg := newRegistry()
	wantPlan, err := planner.Plan(programmatic, reg)
	require.NoError(t, err)

	loaded, err := yamlload.Load([]byte(validRunbookYAML))
	require.NoError(t, err)
	gotPlan, err := planner.Plan(*loaded, reg)
	require.NoError(t, err)

	require.Equal(t, wantPlan.DAG, gotPlan.DAG)
	require.Equal(t, wantPlan.ArtifactSchemas, gotPlan.ArtifactSchemas)
	require.Equal(t, wantPlan.ReversedAliases, gotPlan.ReversedAliases)
}

func newRegistry() *component.Registry {
	raw := message.Schema{Name: "raw", Major: 1}
	found := message.Schema{Name: "findings", Major: 1}
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{Name: "files", Schemas: []message.Schema{raw}})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{raw},
		Outputs: []message.Schema{found},
	})
	return reg
}
