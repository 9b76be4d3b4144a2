// Package inmem provides an in-memory implementation of store.ArtifactStore
// for tests, local development, and any run that does not need durable
// persistence across process restarts.
package inmem

import (
	"context"
	"sync"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

// Store implements store.ArtifactStore using an in-process map keyed by run
// ID and artifact ID. It is thread-safe and enforces write-once semantics
// per key.
type Store struct {
	mu   sync.RWMutex
	runs map[string]map[string]message.Message
}

// New returns a new, empty Store. Ready to use immediately.
func New() *Store {
	return &Store{runs: make(map[string]map[string]message.Message)}
}

// Save persists msg under (runID, artifactID). Returns an error if the key
// was already written.
func (s *Store) Save(_ context.Context, runID, artifactID string, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	artifacts := s.runs[runID]
	if artifacts == nil {
		artifacts = make(map[string]message.Message)
		s.runs[runID] = artifacts
	}
	if _, exists := artifacts[artifactID]; exists {
		return rerrors.Newf(rerrors.ConfigurationError, "artifact %q already written for run %q", artifactID, runID)
	}
	artifacts[artifactID] = msg
	return nil
}

// Get retrieves the message saved under (runID, artifactID).
func (s *Store) Get(_ context.Context, runID, artifactID string) (message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifacts, ok := s.runs[runID]
	if !ok {
		return message.Message{}, rerrors.Newf(rerrors.ConfigurationError, "unknown run %q", runID)
	}
	msg, ok := artifacts[artifactID]
	if !ok {
		return message.Message{}, rerrors.Newf(rerrors.ConfigurationError, "artifact %q not found for run %q", artifactID, runID)
	}
	return msg, nil
}
