// Package redisstore provides a store.ArtifactStore backed by Redis, for
// deployments that want artifacts visible across processes within a run
// (e.g. a CLI process and a sidecar inspector) without committing to a
// durable format. Redis is used purely as a content-addressed cache: the
// spec makes no compatibility promise about the persisted format.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

// Store implements store.ArtifactStore on top of a Redis client. Keys are of
// the form "compliance:artifact:<runID>:<artifactID>" and are written with
// NX (set-if-absent) semantics to enforce write-once.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// Options configures a Store.
type Options struct {
	// Client is the Redis client used for all operations. Required.
	Client *redis.Client
	// TTL expires artifact keys after the given duration. Zero means no
	// expiry (keys live for the Redis instance's lifetime).
	TTL time.Duration
}

// New constructs a Store from the given options.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, rerrors.New(rerrors.ConfigurationError, "redis client is required")
	}
	return &Store{rdb: opts.Client, ttl: opts.TTL}, nil
}

type wireMessage struct {
	ID            string          `json:"id"`
	SchemaName    string          `json:"schema_name"`
	SchemaMajor   int             `json:"schema_major"`
	SchemaMinor   int             `json:"schema_minor"`
	SchemaPatch   int             `json:"schema_patch"`
	Content       json.RawMessage `json:"content"`
	Source        string          `json:"source,omitempty"`
	CreatedAtUnix int64           `json:"created_at_unix"`
	Execution     *wireExecution  `json:"execution,omitempty"`
}

type wireExecution struct {
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	Origin          string  `json:"origin"`
	Alias           string  `json:"alias,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func key(runID, artifactID string) string {
	return fmt.Sprintf("compliance:artifact:%s:%s", runID, artifactID)
}

// Save persists msg under (runID, artifactID) using SetNX so a second write
// to the same key fails instead of clobbering the first.
func (s *Store) Save(ctx context.Context, runID, artifactID string, msg message.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "marshal artifact content", err)
	}
	wire := wireMessage{
		ID:            msg.ID,
		SchemaName:    msg.Schema.Name,
		SchemaMajor:   msg.Schema.Major,
		SchemaMinor:   msg.Schema.Minor,
		SchemaPatch:   msg.Schema.Patch,
		Content:       content,
		Source:        msg.Source,
		CreatedAtUnix: msg.CreatedAt.Unix(),
	}
	if ec := msg.Extensions.Execution; ec != nil {
		wire.Execution = &wireExecution{
			Status:          string(ec.Status),
			DurationSeconds: ec.DurationSeconds,
			Origin:          string(ec.Origin),
			Alias:           ec.Alias,
			Error:           ec.Error,
		}
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "marshal artifact envelope", err)
	}
	ok, err := s.rdb.SetNX(ctx, key(runID, artifactID), payload, s.ttl).Result()
	if err != nil {
		return rerrors.Wrap(rerrors.ServiceUnavailable, "redis setnx failed", err)
	}
	if !ok {
		return rerrors.Newf(rerrors.ConfigurationError, "artifact %q already written for run %q", artifactID, runID)
	}
	return nil
}

// Get retrieves the message saved under (runID, artifactID).
func (s *Store) Get(ctx context.Context, runID, artifactID string) (message.Message, error) {
	payload, err := s.rdb.Get(ctx, key(runID, artifactID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return message.Message{}, rerrors.Newf(rerrors.ConfigurationError, "artifact %q not found for run %q", artifactID, runID)
	}
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ServiceUnavailable, "redis get failed", err)
	}
	var wire wireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConfigurationError, "unmarshal artifact envelope", err)
	}
	var content any
	if len(wire.Content) > 0 {
		if err := json.Unmarshal(wire.Content, &content); err != nil {
			return message.Message{}, rerrors.Wrap(rerrors.ConfigurationError, "unmarshal artifact content", err)
		}
	}
	out := message.Message{
		ID:        wire.ID,
		Schema:    message.Schema{Name: wire.SchemaName, Major: wire.SchemaMajor, Minor: wire.SchemaMinor, Patch: wire.SchemaPatch},
		Content:   content,
		Source:    wire.Source,
		CreatedAt: time.Unix(wire.CreatedAtUnix, 0).UTC(),
	}
	if wire.Execution != nil {
		out.Extensions.Execution = &message.ExecutionContext{
			Status:          message.Status(wire.Execution.Status),
			DurationSeconds: wire.Execution.DurationSeconds,
			Origin:          message.ExecutionOrigin(wire.Execution.Origin),
			Alias:           wire.Execution.Alias,
			Error:           wire.Execution.Error,
		}
	}
	return out, nil
}
