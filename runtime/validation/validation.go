// Package validation implements the shared LLM-backed refinement engine
// analysers use to separate true and false positives out of their
// pattern-matched findings.
package validation

import (
	"github.com/google/uuid"
)

// MatchedPattern records one pattern that contributed to a Finding, and how
// many times it matched.
type MatchedPattern struct {
	Pattern string
	Count   int
}

// Evidence is one excerpt supporting a Finding.
type Evidence struct {
	Snippet string
	Context string
}

// Finding is one unit of analyser output produced during pattern matching,
// prior to LLM validation.
type Finding struct {
	ID              uuid.UUID
	Source          string
	Category        string
	Evidence        []Evidence
	MatchedPatterns []MatchedPattern
	Metadata        map[string]any
}

// SkipReason names why a finding could not be put through LLM validation.
type SkipReason string

const (
	// SkipBatchError means the LLM call for this finding's batch failed.
	SkipBatchError SkipReason = "BATCH_ERROR"
	// SkipOversized means this finding's source alone exceeds the context
	// window and EXTENDED_CONTEXT batching cannot include it.
	SkipOversized SkipReason = "OVERSIZED"
	// SkipMissingContent means the source provider could not return content
	// for this finding's source.
	SkipMissingContent SkipReason = "MISSING_CONTENT"
)

// ValidationResult is the LLM's verdict on one finding.
type ValidationResult string

const (
	TruePositive  ValidationResult = "TRUE_POSITIVE"
	FalsePositive ValidationResult = "FALSE_POSITIVE"
)

// RecommendedAction is the LLM's suggested disposition for one finding.
type RecommendedAction string

const (
	ActionKeep           RecommendedAction = "keep"
	ActionDiscard        RecommendedAction = "discard"
	ActionFlagForReview  RecommendedAction = "flag_for_review"
)

// batchResultEntry is one entry of the LLM's structured response, joined
// back to its Finding by FindingID.
type batchResultEntry struct {
	FindingID          uuid.UUID         `json:"finding_id"`
	ValidationResult   ValidationResult  `json:"validation_result"`
	Confidence         float64           `json:"confidence"`
	Reasoning          string            `json:"reasoning"`
	RecommendedAction  RecommendedAction `json:"recommended_action"`
}

type batchResponse struct {
	Results []batchResultEntry `json:"results"`
}

// CategoryCounts breaks outcome counts down per finding category.
type CategoryCounts struct {
	LLMValidatedKept    int
	LLMValidatedRemoved int
	LLMNotFlagged       int
	Skipped             int
}

// ValidationOutcome is the engine's result for one Validate call.
type ValidationOutcome struct {
	KeptFindings        []Finding
	LLMValidatedKept    []Finding
	LLMValidatedRemoved []Finding
	LLMNotFlagged       []Finding
	Skipped             map[uuid.UUID]SkipReason
	ValidationSucceeded bool
	ByCategory          map[string]CategoryCounts
}

func newOutcome() *ValidationOutcome {
	return &ValidationOutcome{
		Skipped:             make(map[uuid.UUID]SkipReason),
		ValidationSucceeded: true,
		ByCategory:          make(map[string]CategoryCounts),
	}
}

func (o *ValidationOutcome) bump(category string, mutate func(*CategoryCounts)) {
	c := o.ByCategory[category]
	mutate(&c)
	o.ByCategory[category] = c
}

const llmValidatedFlagSuffix = "_llm_validated"
