// Package openai adapts the OpenAI Chat Completions API to the llm.Service
// contract, asking the model to return a single JSON object matching the
// request's response schema via the API's JSON response-format mode.
package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/llm"
)

// ChatCompletionsClient captures the subset of the OpenAI SDK used by
// Client, so tests can substitute a fake.
type ChatCompletionsClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Client implements llm.Service on top of OpenAI Chat Completions.
type Client struct {
	chat         ChatCompletionsClient
	defaultModel string
	maxTokens    int
}

// New builds an OpenAI-backed llm.Service.
func New(chat ChatCompletionsClient, defaultModel string, maxTokens int) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat completions client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("openai: default model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{chat: chat, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a Client using the default OpenAI HTTP transport,
// authenticated with apiKey (which must be non-empty).
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, defaultModel, 0)
}

// Complete asks the model to answer req.Prompt with exactly one JSON object,
// using response_format: json_object, and validates the response against
// req.ResponseSchema.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(modelID),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage("Respond with a single JSON object only, with no surrounding prose or markdown fences."),
			sdk.UserMessage(req.Prompt),
		},
		MaxTokens:      sdk.Int(int64(maxTokens)),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &sdk.ResponseFormatJSONObjectParam{}},
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "openai chat.completions.new", err)
	}
	if len(resp.Choices) == 0 {
		return nil, rerrors.New(rerrors.AnalyserProcessingError, "openai: no choices in response")
	}

	raw := resp.Choices[0].Message.Content
	parsed, err := llm.ParseAndValidate([]byte(raw), req.ResponseSchema)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.AnalyserProcessingError, "validate openai response against schema", err)
	}

	return &llm.Response{RawJSON: []byte(raw), Parsed: parsed}, nil
}
