package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/internal/testsupport"
	"goa.design/compliance-runtime/runtime/component"
	"goa.design/compliance-runtime/runtime/executor"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/planner"
	"goa.design/compliance-runtime/runtime/runbook"
	"goa.design/compliance-runtime/runtime/store/inmem"
)

func schemaV(name string, major, minor, patch int) message.Schema {
	return message.Schema{Name: name, Major: major, Minor: minor, Patch: patch}
}

func TestExecuteProducesEveryArtifact(t *testing.T) {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:    "files",
		Schemas: []message.Schema{schemaV("raw", 1, 0, 0)},
		Msg:     message.Message{Content: "raw content", Source: "fixture"},
	})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{schemaV("raw", 1, 0, 0)},
		Outputs: []message.Schema{schemaV("raw", 1, 0, 0)},
	})

	rb := runbook.Runbook{
		Name: "linear",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
			"result": {Inputs: []string{"source"}, Process: &runbook.ProcessConfig{Type: "analyse"}, Output: true},
		},
	}
	plan, err := planner.Plan(rb, reg)
	require.NoError(t, err)

	st := inmem.New()
	exec := executor.New(reg, st)

	result, err := exec.Execute(context.Background(), "run-1", plan)
	require.NoError(t, err)
	require.Empty(t, result.Skipped)
	require.Len(t, result.Artifacts, 2)

	resultMsg := result.Artifacts["result"]
	require.Equal(t, "raw content", resultMsg.Content)
	require.NotNil(t, resultMsg.Extensions.Execution)
	require.Equal(t, message.StatusSuccess, resultMsg.Extensions.Execution.Status)

	stored, err := st.Get(context.Background(), "run-1", "result")
	require.NoError(t, err)
	require.Equal(t, resultMsg.Content, stored.Content)

	sourceMsg := result.Artifacts["source"]
	require.Equal(t, message.OriginParent, sourceMsg.Extensions.Execution.Origin)
}

func TestExecuteClassifiesChildNamespacedOrigin(t *testing.T) {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:    "files",
		Schemas: []message.Schema{schemaV("raw", 1, 0, 0)},
		Msg:     message.Message{Content: "raw content", Source: "fixture"},
	})

	rb := runbook.Runbook{
		Name: "with-child",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"child:sub-runbook:source": {Source: &runbook.SourceConfig{Type: "files"}},
		},
	}
	plan, err := planner.Plan(rb, reg)
	require.NoError(t, err)

	st := inmem.New()
	exec := executor.New(reg, st)

	result, err := exec.Execute(context.Background(), "run-3", plan)
	require.NoError(t, err)

	msg := result.Artifacts["child:sub-runbook:source"]
	require.NotNil(t, msg.Extensions.Execution)
	require.Equal(t, message.ChildOrigin("sub-runbook"), msg.Extensions.Execution.Origin)
}

func TestExecuteCascadesSkipOnFailure(t *testing.T) {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:         "files",
		Schemas:      []message.Schema{schemaV("raw", 1, 0, 0)},
		ExtractError: errNotAvailable,
	})
	reg.RegisterProcessor(testsupport.PassthroughProcessorFactory{
		Name:    "analyse",
		Inputs:  []message.Schema{schemaV("raw", 1, 0, 0)},
		Outputs: []message.Schema{schemaV("raw", 1, 0, 0)},
	})

	rb := runbook.Runbook{
		Name: "failing",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "files"}},
			"result": {Inputs: []string{"source"}, Process: &runbook.ProcessConfig{Type: "analyse"}},
		},
	}
	plan, err := planner.Plan(rb, reg)
	require.NoError(t, err)

	st := inmem.New()
	exec := executor.New(reg, st)

	result, err := exec.Execute(context.Background(), "run-2", plan)
	require.NoError(t, err)

	sourceMsg := result.Artifacts["source"]
	require.Equal(t, message.StatusError, sourceMsg.Extensions.Execution.Status)

	_, skipped := result.Skipped["result"]
	require.True(t, skipped)
}

// TestExecuteReturnsPromptlyOnDeadline covers Scenario 5: a connector that
// blocks well past the run's configured timeout without ever consulting ctx
// (as filesystem.Extract and patternmatch.Process do) must not delay
// Execute's return. The blocked artifact is reported skipped instead.
func TestExecuteReturnsPromptlyOnDeadline(t *testing.T) {
	reg := component.NewRegistry()
	reg.RegisterConnector(testsupport.StaticConnectorFactory{
		Name:    "slow",
		Schemas: []message.Schema{schemaV("raw", 1, 0, 0)},
		Msg:     message.Message{Content: "raw content", Source: "fixture"},
		Delay:   10 * time.Second,
	})

	rb := runbook.Runbook{
		Name: "timeout",
		Artifacts: map[string]runbook.ArtifactDefinition{
			"source": {Source: &runbook.SourceConfig{Type: "slow"}},
		},
		Config: runbook.Config{MaxConcurrency: 1, Timeout: 1},
	}
	plan, err := planner.Plan(rb, reg)
	require.NoError(t, err)

	st := inmem.New()
	exec := executor.New(reg, st)

	start := time.Now()
	result, err := exec.Execute(context.Background(), "run-timeout", plan)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Less(t, elapsed, 5*time.Second, "Execute must return near the configured timeout, not wait out the blocked connector")
	require.Contains(t, result.Skipped, "source")
	require.Empty(t, result.Artifacts, "a still-blocked artifact's eventual output must never reach the returned result")
}

var errNotAvailable = errTest("source unavailable")

type errTest string

func (e errTest) Error() string { return string(e) }
