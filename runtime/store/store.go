// Package store provides the write-once, per-run artifact key/value store
// that sits between the DAG executor and the messages it produces.
package store

import (
	"context"

	"goa.design/compliance-runtime/runtime/message"
)

// ArtifactStore is a key/value store of Messages keyed by (runID,
// artifactID), write-once per key within a run. Concurrent reads are safe.
// Concurrent writes to different keys must be serialised by implementations;
// concurrent writes to the same key never occur by construction (the DAG
// executor produces each artifact exactly once per run).
//
// Instances must be registered with Transient lifetime in the service
// container so each execution gets a fresh store.
type ArtifactStore interface {
	// Save persists msg under (runID, artifactID). Returns an error if the
	// key has already been written in this run.
	Save(ctx context.Context, runID, artifactID string, msg message.Message) error
	// Get retrieves the message previously saved under (runID, artifactID).
	// Returns an error if no such key exists.
	Get(ctx context.Context, runID, artifactID string) (message.Message, error)
}
