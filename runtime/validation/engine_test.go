package validation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/internal/testsupport"
	"goa.design/compliance-runtime/runtime/validation"
)

func TestValidateEmptyInputIsNoOpWithoutCallingLLM(t *testing.T) {
	llmSvc := &testsupport.ScriptedLLM{}
	engine := validation.New(llmSvc)

	outcome := engine.Validate(context.Background(), nil, testsupport.StaticSourceProvider{}, validation.Config{}, true)

	require.Empty(t, outcome.KeptFindings)
	require.True(t, outcome.ValidationSucceeded)
	require.Empty(t, llmSvc.Requests)
}

func TestValidateFailSafeKeepsFindingsOmittedFromResponse(t *testing.T) {
	f1 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}
	f2 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}
	f3 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}

	responseJSON := `{"results":[{"finding_id":"` + f1.ID.String() + `","validation_result":"FALSE_POSITIVE","confidence":0.9,"reasoning":"matches a known fixture","recommended_action":"discard"}]}`
	llmSvc := &testsupport.ScriptedLLM{ResponseJSON: responseJSON}
	engine := validation.New(llmSvc)

	outcome := engine.Validate(context.Background(), []validation.Finding{f1, f2, f3}, testsupport.StaticSourceProvider{}, validation.Config{Mode: validation.CountBased}, true)

	require.True(t, outcome.ValidationSucceeded)
	require.Len(t, outcome.LLMValidatedRemoved, 1)
	require.Equal(t, f1.ID, outcome.LLMValidatedRemoved[0].ID)
	require.Len(t, outcome.LLMNotFlagged, 2)
	require.Len(t, outcome.KeptFindings, 2)

	keptIDs := map[uuid.UUID]bool{}
	for _, f := range outcome.KeptFindings {
		keptIDs[f.ID] = true
	}
	require.True(t, keptIDs[f2.ID])
	require.True(t, keptIDs[f3.ID])
	require.False(t, keptIDs[f1.ID])
}

func TestValidateTruePositiveTagsMetadata(t *testing.T) {
	f1 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}

	responseJSON := `{"results":[{"finding_id":"` + f1.ID.String() + `","validation_result":"TRUE_POSITIVE","confidence":0.95,"reasoning":"hardcoded credential","recommended_action":"flag_for_review"}]}`
	llmSvc := &testsupport.ScriptedLLM{ResponseJSON: responseJSON}
	engine := validation.New(llmSvc)

	outcome := engine.Validate(context.Background(), []validation.Finding{f1}, testsupport.StaticSourceProvider{}, validation.Config{Mode: validation.CountBased}, true)

	require.Len(t, outcome.KeptFindings, 1)
	require.Equal(t, true, outcome.KeptFindings[0].Metadata["secret_llm_validated"])
	require.Equal(t, 1, outcome.ByCategory["secret"].LLMValidatedKept)
}

func TestValidateBatchErrorSkipsWithFindingsKept(t *testing.T) {
	f1 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}
	llmSvc := &testsupport.ScriptedLLM{Err: context.DeadlineExceeded}
	engine := validation.New(llmSvc)

	outcome := engine.Validate(context.Background(), []validation.Finding{f1}, testsupport.StaticSourceProvider{}, validation.Config{Mode: validation.CountBased}, true)

	require.False(t, outcome.ValidationSucceeded)
	require.Len(t, outcome.KeptFindings, 1)
	reason, ok := outcome.Skipped[f1.ID]
	require.True(t, ok)
	require.Equal(t, validation.SkipBatchError, reason)
}

func TestValidateDisabledShortCircuitsWithoutCallingLLM(t *testing.T) {
	f1 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}
	llmSvc := &testsupport.ScriptedLLM{}
	engine := validation.New(llmSvc)

	outcome := engine.Validate(context.Background(), []validation.Finding{f1}, testsupport.StaticSourceProvider{}, validation.Config{}, false)

	require.True(t, outcome.ValidationSucceeded)
	require.Equal(t, []validation.Finding{f1}, outcome.KeptFindings)
	require.Empty(t, llmSvc.Requests)
}

func TestValidateUnavailableServiceMarksFailedWhenRequested(t *testing.T) {
	engine := validation.New(nil)
	f1 := validation.Finding{ID: uuid.New(), Source: "a.go", Category: "secret"}

	outcome := engine.Validate(context.Background(), []validation.Finding{f1}, testsupport.StaticSourceProvider{}, validation.Config{}, true)

	require.False(t, outcome.ValidationSucceeded)
	require.Equal(t, []validation.Finding{f1}, outcome.KeptFindings)
}
