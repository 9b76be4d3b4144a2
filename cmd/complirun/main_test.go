package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/runtime/executor"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/runbook"
)

func TestExitCodeForSuccess(t *testing.T) {
	rb := runbook.Runbook{Artifacts: map[string]runbook.ArtifactDefinition{
		"a": {Source: &runbook.SourceConfig{Type: "files"}},
	}}
	result := &executor.ExecutionResult{
		Artifacts: map[string]message.Message{
			"a": {Extensions: message.Extensions{Execution: &message.ExecutionContext{Status: message.StatusSuccess}}},
		},
	}
	require.Equal(t, exitSuccess, exitCodeFor(rb, result))
}

func TestExitCodeForPartialRun(t *testing.T) {
	rb := runbook.Runbook{Artifacts: map[string]runbook.ArtifactDefinition{
		"a": {Source: &runbook.SourceConfig{Type: "files"}},
		"b": {Inputs: []string{"a"}},
	}}
	result := &executor.ExecutionResult{
		Artifacts: map[string]message.Message{
			"a": {Extensions: message.Extensions{Execution: &message.ExecutionContext{Status: message.StatusSuccess}}},
		},
		Skipped: map[string]string{"b": "run deadline exceeded before this artifact started"},
	}
	require.Equal(t, exitPartialRun, exitCodeFor(rb, result))
}

func TestExitCodeForFailureOnNonOptionalError(t *testing.T) {
	rb := runbook.Runbook{Artifacts: map[string]runbook.ArtifactDefinition{
		"a": {Source: &runbook.SourceConfig{Type: "files"}},
	}}
	result := &executor.ExecutionResult{
		Artifacts: map[string]message.Message{
			"a": {Extensions: message.Extensions{Execution: &message.ExecutionContext{Status: message.StatusError}}},
		},
	}
	require.Equal(t, exitFailure, exitCodeFor(rb, result))
}

func TestExitCodeForOptionalErrorIsNotFailure(t *testing.T) {
	rb := runbook.Runbook{Artifacts: map[string]runbook.ArtifactDefinition{
		"a": {Source: &runbook.SourceConfig{Type: "files"}, Optional: true},
	}}
	result := &executor.ExecutionResult{
		Artifacts: map[string]message.Message{
			"a": {Extensions: message.Extensions{Execution: &message.ExecutionContext{Status: message.StatusError}}},
		},
	}
	require.Equal(t, exitSuccess, exitCodeFor(rb, result))
}
