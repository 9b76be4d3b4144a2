package testsupport

import (
	"context"
	"encoding/json"

	"goa.design/compliance-runtime/runtime/llm"
	"goa.design/compliance-runtime/runtime/validation"
)

// ScriptedLLM is an llm.Service double that returns a fixed response (or
// error) for every Complete call, recording the requests it received.
type ScriptedLLM struct {
	ResponseJSON string
	Err          error
	Requests     []llm.Request
}

// Complete implements llm.Service.
func (s *ScriptedLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	var parsed any
	if err := json.Unmarshal([]byte(s.ResponseJSON), &parsed); err != nil {
		return nil, err
	}
	return &llm.Response{RawJSON: []byte(s.ResponseJSON), Parsed: parsed}, nil
}

// StaticSourceProvider is a validation.SourceProvider double backed by an
// in-memory map of source ID to content. Findings are grouped by their
// Source field directly: SourceIDs is only consulted when a finding's
// source needs remapping to a different source ID.
type StaticSourceProvider struct {
	SourceIDs map[string]string // finding.Source -> sourceID
	Content   map[string]string // sourceID -> content
}

// SourceID implements validation.SourceProvider.
func (p StaticSourceProvider) SourceID(f validation.Finding) string {
	if id, ok := p.SourceIDs[f.Source]; ok {
		return id
	}
	return f.Source
}

// GetSourceContent implements validation.SourceProvider.
func (p StaticSourceProvider) GetSourceContent(sourceID string) (string, bool) {
	c, ok := p.Content[sourceID]
	return c, ok
}

// TokensEstimate implements validation.SourceProvider: one token per four
// characters, a common rough estimator.
func (p StaticSourceProvider) TokensEstimate(_ string, content string) int {
	return len(content)/4 + 1
}
