// Package bedrock adapts the AWS Bedrock Converse API to the llm.Service
// contract, asking the underlying model to return a single JSON object
// matching the request's response schema.
package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/llm"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client the
// adapter requires, matching *bedrockruntime.Client so callers can pass
// either the real client or a fake in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements llm.Service on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
}

// New builds a Bedrock-backed llm.Service.
func New(runtime RuntimeClient, defaultModel string, maxTokens int) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("bedrock: default model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{runtime: runtime, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// Complete asks the model to answer req.Prompt with exactly one JSON object
// and validates the response against req.ResponseSchema.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := int32(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = int32(c.maxTokens)
	}

	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: &modelID,
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: "Respond with a single JSON object only, with no surrounding prose or markdown fences."},
		},
		Messages: []brtypes.Message{
			{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.Prompt}},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{MaxTokens: &maxTokens},
	})
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "bedrock converse", err)
	}

	raw, err := extractText(out)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.AnalyserProcessingError, "extract bedrock response text", err)
	}

	parsed, err := llm.ParseAndValidate([]byte(raw), req.ResponseSchema)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.AnalyserProcessingError, "validate bedrock response against schema", err)
	}

	return &llm.Response{RawJSON: []byte(raw), Parsed: parsed}, nil
}

func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	msgOutput, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock: response output is not a message")
	}
	for _, block := range msgOutput.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok && textBlock.Value != "" {
			return textBlock.Value, nil
		}
	}
	return "", errors.New("bedrock: no text content in response")
}
