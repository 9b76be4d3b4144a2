package validation

// BatchingMode selects how findings are grouped into LLM calls.
type BatchingMode string

const (
	// CountBased packs up to Config.MaxFindingsPerBatch independent
	// findings per call, regardless of source.
	CountBased BatchingMode = "COUNT_BASED"
	// ExtendedContext groups findings by source, packing whole sources into
	// a batch as long as their combined estimated token cost (plus a fixed
	// per-source prompt overhead) fits the configured context window.
	ExtendedContext BatchingMode = "EXTENDED_CONTEXT"
)

// Config configures the validation engine's batching behaviour.
type Config struct {
	Mode BatchingMode
	// MaxFindingsPerBatch bounds batch size in CountBased mode. Defaults to
	// 20 when zero.
	MaxFindingsPerBatch int
	// ModelContextWindow bounds total estimated tokens per batch in
	// ExtendedContext mode.
	ModelContextWindow int
	// PromptOverheadPerSource is added, per distinct source, to a batch's
	// estimated token cost in ExtendedContext mode. Defaults to 500 when
	// zero.
	PromptOverheadPerSource int
}

// DefaultMaxFindingsPerBatch is used when Config.MaxFindingsPerBatch is unset.
const DefaultMaxFindingsPerBatch = 20

// DefaultPromptOverheadPerSource is used when
// Config.PromptOverheadPerSource is unset.
const DefaultPromptOverheadPerSource = 500

func (c Config) withDefaults() Config {
	if c.MaxFindingsPerBatch <= 0 {
		c.MaxFindingsPerBatch = DefaultMaxFindingsPerBatch
	}
	if c.PromptOverheadPerSource <= 0 {
		c.PromptOverheadPerSource = DefaultPromptOverheadPerSource
	}
	return c
}

// batch is one group of findings to submit together. Findings whose source
// could not be batched at all are returned separately by buildBatches.
type batch struct {
	findings []Finding
}

// buildBatches partitions findings per cfg.Mode. oversized and missing
// return findings excluded before batching, with their skip reasons.
func buildBatches(cfg Config, findings []Finding, provider SourceProvider) (batches []batch, oversized, missing []Finding) {
	cfg = cfg.withDefaults()

	switch cfg.Mode {
	case ExtendedContext:
		return buildExtendedContextBatches(cfg, findings, provider)
	default:
		return buildCountBasedBatches(cfg, findings), nil, nil
	}
}

func buildCountBasedBatches(cfg Config, findings []Finding) []batch {
	var batches []batch
	for i := 0; i < len(findings); i += cfg.MaxFindingsPerBatch {
		end := i + cfg.MaxFindingsPerBatch
		if end > len(findings) {
			end = len(findings)
		}
		batches = append(batches, batch{findings: findings[i:end]})
	}
	return batches
}

func buildExtendedContextBatches(cfg Config, findings []Finding, provider SourceProvider) (batches []batch, oversized, missing []Finding) {
	bySource := make(map[string][]Finding)
	var sourceOrder []string
	for _, f := range findings {
		id := provider.SourceID(f)
		if _, ok := bySource[id]; !ok {
			sourceOrder = append(sourceOrder, id)
		}
		bySource[id] = append(bySource[id], f)
	}

	var current batch
	currentTokens := 0

	for _, sourceID := range sourceOrder {
		group := bySource[sourceID]
		content, ok := provider.GetSourceContent(sourceID)
		if !ok {
			missing = append(missing, group...)
			continue
		}
		tokens := provider.TokensEstimate(sourceID, content) + cfg.PromptOverheadPerSource
		if tokens > cfg.ModelContextWindow {
			oversized = append(oversized, group...)
			continue
		}
		if currentTokens+tokens > cfg.ModelContextWindow && len(current.findings) > 0 {
			batches = append(batches, current)
			current = batch{}
			currentTokens = 0
		}
		current.findings = append(current.findings, group...)
		currentTokens += tokens
	}
	if len(current.findings) > 0 {
		batches = append(batches, current)
	}
	return batches, oversized, missing
}
