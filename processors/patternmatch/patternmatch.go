// Package patternmatch provides a reference analyser Processor: it scans
// filesystem.Content or sqlite.Content for configured regular-expression
// patterns, produces validation.Finding values, optionally refines them
// through the validation engine, and emits the surviving findings as its
// output Message.
package patternmatch

import (
	"context"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"goa.design/compliance-runtime/connectors/filesystem"
	"goa.design/compliance-runtime/connectors/sqlite"
	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/llm"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/validation"
)

// SchemaName identifies the output schema this processor produces.
const SchemaName = "patternmatch.findings"

var outputSchema = message.Schema{Name: SchemaName, Major: 1, Minor: 0, Patch: 0}

// PatternSpec names one category and its matching regular expression.
type PatternSpec struct {
	Category string
	Pattern  string
}

// Content is the payload carried by Messages this processor produces: the
// post-validation finding set plus a per-category validation summary.
type Content struct {
	Findings         []validation.Finding
	ValidationSummary map[string]validation.CategoryCounts
}

// inMemorySourceProvider answers validation.SourceProvider by looking up
// already-materialised source content collected during matching.
type inMemorySourceProvider struct {
	content map[string]string
}

func (p *inMemorySourceProvider) SourceID(f validation.Finding) string { return f.Source }

func (p *inMemorySourceProvider) GetSourceContent(sourceID string) (string, bool) {
	c, ok := p.content[sourceID]
	return c, ok
}

func (p *inMemorySourceProvider) TokensEstimate(_ string, content string) int {
	// Rough heuristic consistent with common tokenizer density: ~4 bytes
	// per token for English source text.
	return len(content)/4 + 1
}

// Processor implements component.Processor by regex-matching configured
// patterns over its input and refining matches through a validation.Engine.
type Processor struct {
	patterns           []PatternSpec
	compiled           []*regexp.Regexp
	validationEngine   *validation.Engine
	validationEnabled  bool
	validationConfig   validation.Config
}

// Name implements component.Processor.
func (p *Processor) Name() string { return "patternmatch" }

// InputRequirements implements component.Processor: accepts either
// filesystem or sqlite leaf output.
func (p *Processor) InputRequirements() [][]component.InputRequirement {
	return [][]component.InputRequirement{
		{{SchemaName: filesystem.SchemaName, Version: message.Schema{Name: filesystem.SchemaName, Major: 1, Minor: 0, Patch: 0}}},
		{{SchemaName: sqlite.SchemaName, Version: message.Schema{Name: sqlite.SchemaName, Major: 1, Minor: 0, Patch: 0}}},
	}
}

// SupportedOutputSchemas implements component.Processor.
func (p *Processor) SupportedOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// Process implements component.Processor: it matches patterns, runs
// validation, and emits the surviving findings.
func (p *Processor) Process(ctx context.Context, inputs []message.Message, outputSchema message.Schema) (message.Message, error) {
	if len(inputs) != 1 {
		return message.Message{}, rerrors.Newf(rerrors.AnalyserProcessingError, "patternmatch processor requires exactly one input, got %d", len(inputs))
	}

	sources, err := extractSources(inputs[0])
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.AnalyserProcessingError, "read patternmatch input", err)
	}

	provider := &inMemorySourceProvider{content: make(map[string]string, len(sources))}
	var findings []validation.Finding
	for _, src := range sources {
		provider.content[src.id] = src.content
		for i, re := range p.compiled {
			matches := re.FindAllString(src.content, -1)
			if len(matches) == 0 {
				continue
			}
			counts := make(map[string]int)
			for _, m := range matches {
				counts[m]++
			}
			evidence := make([]validation.Evidence, 0, len(matches))
			for _, m := range matches[:min(len(matches), 5)] {
				evidence = append(evidence, validation.Evidence{Snippet: m})
			}
			var matchedPatterns []validation.MatchedPattern
			for text, count := range counts {
				matchedPatterns = append(matchedPatterns, validation.MatchedPattern{Pattern: text, Count: count})
			}
			findings = append(findings, validation.Finding{
				ID:              uuid.New(),
				Source:          src.id,
				Category:        p.patterns[i].Category,
				Evidence:        evidence,
				MatchedPatterns: matchedPatterns,
				Metadata:        map[string]any{},
			})
		}
	}

	outcome := p.validationEngine.Validate(ctx, findings, provider, p.validationConfig, p.validationEnabled)

	return message.Message{
		Schema:  outputSchema,
		Content: Content{Findings: outcome.KeptFindings, ValidationSummary: outcome.ByCategory},
		Source:  inputs[0].Source,
	}, nil
}

type namedSource struct {
	id      string
	content string
}

func extractSources(msg message.Message) ([]namedSource, error) {
	switch c := msg.Content.(type) {
	case filesystem.Content:
		out := make([]namedSource, 0, len(c.Files))
		for _, f := range c.Files {
			out = append(out, namedSource{id: f.Path, content: f.Content})
		}
		return out, nil
	case sqlite.Content:
		out := make([]namedSource, 0, len(c.Rows))
		for i, row := range c.Rows {
			out = append(out, namedSource{id: namedRowID(c.Table, i), content: renderRow(row)})
		}
		return out, nil
	default:
		return nil, rerrors.Newf(rerrors.AnalyserProcessingError, "unsupported input content type %T", msg.Content)
	}
}

func namedRowID(table string, idx int) string {
	return table + "#" + strconv.Itoa(idx)
}

func renderRow(row sqlite.Row) string {
	out := ""
	for k, v := range row {
		out += k + "=" + toString(v) + " "
	}
	return out
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Factory implements component.ProcessorFactory for Processor.
type Factory struct {
	// Patterns is the fixed set of category/regex pairs every created
	// Processor instance matches.
	Patterns []PatternSpec
	// LLMService backs the validation engine; nil means validation is
	// unavailable.
	LLMService llm.Service
	// ValidationEnabled selects whether Process runs the validation
	// engine at all for created instances.
	ValidationEnabled bool
	// ValidationConfig configures batching when validation is enabled.
	ValidationConfig validation.Config
}

// ComponentName implements component.ProcessorFactory.
func (Factory) ComponentName() string { return "patternmatch" }

// GetInputSchemas implements component.ProcessorFactory.
func (Factory) GetInputSchemas() []message.Schema {
	return []message.Schema{
		{Name: filesystem.SchemaName, Major: 1, Minor: 0, Patch: 0},
		{Name: sqlite.SchemaName, Major: 1, Minor: 0, Patch: 0},
	}
}

// GetOutputSchemas implements component.ProcessorFactory.
func (Factory) GetOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// CanCreate implements component.ProcessorFactory.
func (f Factory) CanCreate(component.Config) bool { return len(f.Patterns) > 0 }

// Create implements component.ProcessorFactory.
func (f Factory) Create(cfg component.Config) (component.Processor, error) {
	if len(f.Patterns) == 0 {
		return nil, rerrors.New(rerrors.ConnectorConfigError, "patternmatch processor requires at least one configured pattern")
	}
	compiled := make([]*regexp.Regexp, 0, len(f.Patterns))
	for _, p := range f.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, rerrors.Wrap(rerrors.ConnectorConfigError, "compile pattern for category "+p.Category, err)
		}
		compiled = append(compiled, re)
	}
	return &Processor{
		patterns:          f.Patterns,
		compiled:          compiled,
		validationEngine:  validation.New(f.LLMService),
		validationEnabled: f.ValidationEnabled,
		validationConfig:  f.ValidationConfig,
	}, nil
}

// GetServiceDependencies implements component.ProcessorFactory.
func (Factory) GetServiceDependencies() map[string]string {
	return map[string]string{"llmService": "llm.Service"}
}
