// Package mongostore provides a store.ArtifactStore backed by MongoDB, for
// deployments that want artifacts to outlive the process producing them
// (e.g. inspection tooling run after the pipeline completes). As with other
// store backends, the persisted document shape is opaque outside this
// package; the spec makes no compatibility promise about it.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

const (
	defaultCollection = "compliance_artifacts"
	defaultTimeout     = 5 * time.Second
)

// Options configures a Store.
type Options struct {
	// Client is a connected MongoDB client. Required.
	Client *mongo.Client
	// Database names the database holding the artifacts collection.
	Database string
	// Collection overrides the default collection name
	// ("compliance_artifacts").
	Collection string
	// Timeout bounds each individual Mongo operation.
	Timeout time.Duration
}

// Store implements store.ArtifactStore on top of a MongoDB collection. Each
// artifact is one document keyed by a compound (run_id, artifact_id) unique
// index, so a duplicate Save fails with a driver duplicate-key error that
// Save translates into a ConfigurationError.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

type document struct {
	RunID         string           `bson:"run_id"`
	ArtifactID    string           `bson:"artifact_id"`
	MessageID     string           `bson:"message_id"`
	SchemaName    string           `bson:"schema_name"`
	SchemaMajor   int              `bson:"schema_major"`
	SchemaMinor   int              `bson:"schema_minor"`
	SchemaPatch   int              `bson:"schema_patch"`
	ContentJSON   string           `bson:"content_json"`
	Source        string           `bson:"source,omitempty"`
	CreatedAtUnix int64            `bson:"created_at_unix"`
	Execution     *executionDocument `bson:"execution,omitempty"`
}

type executionDocument struct {
	Status          string  `bson:"status"`
	DurationSeconds float64 `bson:"duration_seconds"`
	Origin          string  `bson:"origin"`
	Alias           string  `bson:"alias,omitempty"`
	Error           string  `bson:"error,omitempty"`
}

// New constructs a Store, ensuring the unique (run_id, artifact_id) index
// exists.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, rerrors.New(rerrors.ConfigurationError, "mongo client is required")
	}
	if opts.Database == "" {
		return nil, rerrors.New(rerrors.ConfigurationError, "database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "artifact_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "create artifact index", err)
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// Save persists msg under (runID, artifactID).
func (s *Store) Save(ctx context.Context, runID, artifactID string, msg message.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "marshal artifact content", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	doc := document{
		RunID:         runID,
		ArtifactID:    artifactID,
		MessageID:     msg.ID,
		SchemaName:    msg.Schema.Name,
		SchemaMajor:   msg.Schema.Major,
		SchemaMinor:   msg.Schema.Minor,
		SchemaPatch:   msg.Schema.Patch,
		ContentJSON:   string(content),
		Source:        msg.Source,
		CreatedAtUnix: msg.CreatedAt.Unix(),
	}
	if ec := msg.Extensions.Execution; ec != nil {
		doc.Execution = &executionDocument{
			Status:          string(ec.Status),
			DurationSeconds: ec.DurationSeconds,
			Origin:          string(ec.Origin),
			Alias:           ec.Alias,
			Error:           ec.Error,
		}
	}
	_, err = s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return rerrors.Newf(rerrors.ConfigurationError, "artifact %q already written for run %q", artifactID, runID)
	}
	if err != nil {
		return rerrors.Wrap(rerrors.ServiceUnavailable, "mongo insert failed", err)
	}
	return nil
}

// Get retrieves the message saved under (runID, artifactID).
func (s *Store) Get(ctx context.Context, runID, artifactID string) (message.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "run_id", Value: runID}, {Key: "artifact_id", Value: artifactID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return message.Message{}, rerrors.Newf(rerrors.ConfigurationError, "artifact %q not found for run %q", artifactID, runID)
	}
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ServiceUnavailable, "mongo find failed", err)
	}
	var content any
	if doc.ContentJSON != "" {
		if err := json.Unmarshal([]byte(doc.ContentJSON), &content); err != nil {
			return message.Message{}, rerrors.Wrap(rerrors.ConfigurationError, "unmarshal artifact content", err)
		}
	}
	out := message.Message{
		ID:        doc.MessageID,
		Schema:    message.Schema{Name: doc.SchemaName, Major: doc.SchemaMajor, Minor: doc.SchemaMinor, Patch: doc.SchemaPatch},
		Content:   content,
		Source:    doc.Source,
		CreatedAt: time.Unix(doc.CreatedAtUnix, 0).UTC(),
	}
	if doc.Execution != nil {
		out.Extensions.Execution = &message.ExecutionContext{
			Status:          message.Status(doc.Execution.Status),
			DurationSeconds: doc.Execution.DurationSeconds,
			Origin:          message.ExecutionOrigin(doc.Execution.Origin),
			Alias:           doc.Execution.Alias,
			Error:           doc.Execution.Error,
		}
	}
	return out, nil
}
