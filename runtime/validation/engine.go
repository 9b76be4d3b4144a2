package validation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/compliance-runtime/runtime/llm"
)

// SourceProvider abstracts how a finding's underlying source content is
// fetched and sized, so the engine never couples to connector internals.
type SourceProvider interface {
	// SourceID returns the stable identifier for the source a finding came
	// from (e.g. a file path or "db(table.column)" address).
	SourceID(f Finding) string
	// GetSourceContent returns the full content for sourceID, or false if
	// it cannot be retrieved.
	GetSourceContent(sourceID string) (string, bool)
	// TokensEstimate estimates the token cost of content for sourceID.
	TokensEstimate(sourceID, content string) int
}

// PromptBuilder renders the validation prompt for one batch of findings.
type PromptBuilder interface {
	BuildPrompt(findings []Finding, provider SourceProvider) string
}

// DefaultPromptBuilder renders one "Finding [<UUID>]: ..." line per finding,
// echoing evidence and matched patterns, so the LLM's response can be joined
// back by finding_id.
type DefaultPromptBuilder struct{}

// BuildPrompt implements PromptBuilder.
func (DefaultPromptBuilder) BuildPrompt(findings []Finding, provider SourceProvider) string {
	out := "Review each finding below and decide whether it is a true or false positive.\n\n"
	for _, f := range findings {
		out += fmt.Sprintf("Finding [%s]: category=%s source=%s\n", f.ID, f.Category, f.Source)
		for _, p := range f.MatchedPatterns {
			out += fmt.Sprintf("  matched pattern %q x%d\n", p.Pattern, p.Count)
		}
		for _, e := range f.Evidence {
			out += fmt.Sprintf("  evidence: %s\n", e.Snippet)
		}
	}
	return out
}

var responseSchema *jsonschema.Schema

func init() {
	doc := map[string]any{
		"type":     "object",
		"required": []any{"results"},
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"finding_id", "validation_result", "confidence", "reasoning", "recommended_action"},
					"properties": map[string]any{
						"finding_id":          map[string]any{"type": "string"},
						"validation_result":   map[string]any{"type": "string", "enum": []any{"TRUE_POSITIVE", "FALSE_POSITIVE"}},
						"confidence":          map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"reasoning":           map[string]any{"type": "string"},
						"recommended_action":  map[string]any{"type": "string", "enum": []any{"keep", "discard", "flag_for_review"}},
					},
				},
			},
		},
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("validation-response.json", doc); err != nil {
		panic(fmt.Sprintf("validation: add response schema resource: %v", err))
	}
	schema, err := c.Compile("validation-response.json")
	if err != nil {
		panic(fmt.Sprintf("validation: compile response schema: %v", err))
	}
	responseSchema = schema
}

// Engine refines pattern-matched findings through an llm.Service.
type Engine struct {
	llmService llm.Service
	builder    PromptBuilder
	modelName  string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPromptBuilder overrides the DefaultPromptBuilder.
func WithPromptBuilder(b PromptBuilder) Option { return func(e *Engine) { e.builder = b } }

// WithModel sets the model identifier passed to every llm.Request.
func WithModel(name string) Option { return func(e *Engine) { e.modelName = name } }

// New constructs an Engine. svc may be nil, meaning validation is
// unavailable; Validate then behaves per the "unavailable LLM service"
// failure semantics.
func New(svc llm.Service, opts ...Option) *Engine {
	e := &Engine{llmService: svc, builder: DefaultPromptBuilder{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate refines findings against provider and cfg. enabled selects
// whether the caller wants validation at all; when false (or when svc is
// nil and enabled is true), Validate short-circuits per the spec's
// "unavailable LLM service" semantics.
func (e *Engine) Validate(ctx context.Context, findings []Finding, provider SourceProvider, cfg Config, enabled bool) *ValidationOutcome {
	outcome := newOutcome()

	if !enabled {
		outcome.KeptFindings = findings
		return outcome
	}
	if e.llmService == nil {
		outcome.KeptFindings = findings
		outcome.ValidationSucceeded = false
		return outcome
	}

	batches, oversized, missing := buildBatches(cfg, findings, provider)

	for _, f := range oversized {
		e.recordSkip(outcome, f, SkipOversized)
	}
	for _, f := range missing {
		e.recordSkip(outcome, f, SkipMissingContent)
	}

	for _, b := range batches {
		e.processBatch(ctx, outcome, b.findings, provider)
	}

	return outcome
}

func (e *Engine) processBatch(ctx context.Context, outcome *ValidationOutcome, findings []Finding, provider SourceProvider) {
	prompt := e.builder.BuildPrompt(findings, provider)

	req := llm.Request{
		Model:          e.modelName,
		Prompt:         prompt,
		ResponseSchema: responseSchema,
		SchemaID:       "validation-response.json",
	}

	resp, err := e.llmService.Complete(ctx, req)
	if err != nil {
		for _, f := range findings {
			e.recordSkip(outcome, f, SkipBatchError)
		}
		outcome.ValidationSucceeded = false
		return
	}

	var parsed batchResponse
	if err := json.Unmarshal(resp.RawJSON, &parsed); err != nil {
		for _, f := range findings {
			e.recordSkip(outcome, f, SkipBatchError)
		}
		outcome.ValidationSucceeded = false
		return
	}

	byID := make(map[uuid.UUID]Finding, len(findings))
	for _, f := range findings {
		byID[f.ID] = f
	}

	results := make(map[uuid.UUID]batchResultEntry, len(parsed.Results))
	for _, r := range parsed.Results {
		// Defensive against LLM drift: discard entries not in this batch.
		if _, ok := byID[r.FindingID]; !ok {
			continue
		}
		results[r.FindingID] = r
	}

	for _, f := range findings {
		result, flagged := results[f.ID]
		switch {
		case !flagged:
			outcome.LLMNotFlagged = append(outcome.LLMNotFlagged, f)
			outcome.KeptFindings = append(outcome.KeptFindings, f)
			outcome.bump(f.Category, func(c *CategoryCounts) { c.LLMNotFlagged++ })
		case result.ValidationResult == FalsePositive:
			outcome.LLMValidatedRemoved = append(outcome.LLMValidatedRemoved, f)
			outcome.bump(f.Category, func(c *CategoryCounts) { c.LLMValidatedRemoved++ })
		default:
			kept := f
			if kept.Metadata == nil {
				kept.Metadata = make(map[string]any, 1)
			} else {
				copied := make(map[string]any, len(kept.Metadata)+1)
				for k, v := range kept.Metadata {
					copied[k] = v
				}
				kept.Metadata = copied
			}
			kept.Metadata[kept.Category+llmValidatedFlagSuffix] = true
			outcome.LLMValidatedKept = append(outcome.LLMValidatedKept, kept)
			outcome.KeptFindings = append(outcome.KeptFindings, kept)
			outcome.bump(f.Category, func(c *CategoryCounts) { c.LLMValidatedKept++ })
		}
	}
}

func (e *Engine) recordSkip(outcome *ValidationOutcome, f Finding, reason SkipReason) {
	outcome.Skipped[f.ID] = reason
	outcome.KeptFindings = append(outcome.KeptFindings, f)
	outcome.ValidationSucceeded = false
	outcome.bump(f.Category, func(c *CategoryCounts) { c.Skipped++ })
}
