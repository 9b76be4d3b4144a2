// Package llm defines the structured-output model client contract the
// validation engine depends on, plus a response-caching decorator shared by
// every provider adapter.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Request asks a model to produce a JSON response conforming to
// ResponseSchema, grounding its answer in Prompt.
type Request struct {
	// Model identifies the underlying model (provider-specific name).
	Model string
	// Prompt is the fully rendered instruction, including any embedded
	// evidence the caller wants the model to reason over.
	Prompt string
	// ResponseSchema is a compiled JSON Schema describing the required
	// shape of the response. Providers must enforce it server-side when
	// supported, and callers must always validate it client-side too.
	ResponseSchema *jsonschema.Schema
	// SchemaID names ResponseSchema for cache-key purposes (callers
	// typically pass the schema's registered resource name). Two requests
	// with the same Model, Prompt and SchemaID are treated as identical.
	SchemaID string
	// MaxTokens bounds the completion length. Zero means provider default.
	MaxTokens int
}

// Response is a model's structured reply: RawJSON decoded and validated
// against the request's ResponseSchema.
type Response struct {
	RawJSON []byte
	Parsed  any
}

// Service is the model dependency the validation engine calls through. One
// instance is registered per configured provider/model pair.
type Service interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ParseAndValidate decodes raw as JSON and validates it against schema,
// returning the decoded value. Providers that cannot guarantee
// schema-conformant output at the API layer should still route their raw
// response through this so callers get a consistent validation error shape.
func ParseAndValidate(raw []byte, schema *jsonschema.Schema) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if schema != nil {
		if err := schema.Validate(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// cacheKey identifies a (prompt, schema, model) tuple for memoization. Two
// requests differing only in MaxTokens are treated as identical: the cache
// exists to avoid re-asking a model the same question, not to distinguish
// token budgets.
func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(req.SchemaID))
	return hex.EncodeToString(h.Sum(nil))
}

// CachingService wraps a Service with an in-memory memoization layer keyed
// by (prompt, response schema identity, model). Safe for concurrent use.
type CachingService struct {
	inner Service

	mu    sync.Mutex
	cache map[string]*Response
}

// NewCaching wraps inner with request-level memoization.
func NewCaching(inner Service) *CachingService {
	return &CachingService{inner: inner, cache: make(map[string]*Response)}
}

// Complete returns a cached Response for an identical prior request, or
// delegates to inner and caches the result on success.
func (c *CachingService) Complete(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(req)

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = resp
	c.mu.Unlock()
	return resp, nil
}
