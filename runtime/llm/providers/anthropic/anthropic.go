// Package anthropic adapts the Anthropic Claude Messages API to the llm.Service
// contract, asking the model to return a single JSON object matching the
// request's response schema.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/llm"
)

// MessagesClient captures the subset of the Anthropic SDK used by Client, so
// tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements llm.Service on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
}

// New builds an Anthropic-backed llm.Service.
func New(msg MessagesClient, defaultModel string, maxTokens int) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("anthropic: default model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a Client using the default Anthropic HTTP
// transport, authenticated with apiKey (which must be non-empty).
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, defaultModel, 0)
}

// Complete asks Claude to answer req.Prompt with exactly one JSON object, and
// validates the response against req.ResponseSchema.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		System: []sdk.TextBlockParam{
			{Text: "Respond with a single JSON object only, with no surrounding prose or markdown fences."},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "anthropic messages.new", err)
	}

	raw, err := extractText(msg)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.AnalyserProcessingError, "extract anthropic response text", err)
	}

	parsed, err := llm.ParseAndValidate([]byte(raw), req.ResponseSchema)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.AnalyserProcessingError, "validate anthropic response against schema", err)
	}

	return &llm.Response{RawJSON: []byte(raw), Parsed: parsed}, nil
}

func extractText(msg *sdk.Message) (string, error) {
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
