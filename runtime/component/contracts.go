// Package component defines the behavioural contracts for connectors and
// processors (analysers), and the factory + registry machinery that turns
// declarative runbook configuration into component instances.
package component

import (
	"context"

	"goa.design/compliance-runtime/runtime/message"
)

// Connector produces a leaf Message from an external source.
type Connector interface {
	Name() string
	SupportedOutputSchemas() []message.Schema
	// Extract produces a Message typed as outputSchema. Implementations must
	// fail with a ConnectorConfigError for configuration problems (invalid
	// config, missing file, unsupported schema) and ConnectorExtractionError
	// for runtime I/O/decoding/data-shape failures; no other error kinds.
	Extract(ctx context.Context, outputSchema message.Schema) (message.Message, error)
}

// InputRequirement names one schema (by name and minimum version) that a
// processor's input combination expects.
type InputRequirement struct {
	SchemaName string
	Version    message.Schema
}

// Processor (analyser) derives a Message from one or more input Messages.
type Processor interface {
	Name() string
	// InputRequirements returns a disjunction of conjunctions: each inner
	// slice is one acceptable combination of input schemas, enabling fan-in
	// and alternative shapes.
	InputRequirements() [][]InputRequirement
	SupportedOutputSchemas() []message.Schema
	// Process derives a Message from inputs, failing with
	// AnalyserProcessingError on runtime failure.
	Process(ctx context.Context, inputs []message.Message, outputSchema message.Schema) (message.Message, error)
}

// Config is the raw declarative configuration for a component, taken
// verbatim from the runbook's artifact definition (source.properties or
// process.properties).
type Config map[string]any

// ConnectorFactory constructs Connector instances from declarative config.
type ConnectorFactory interface {
	ComponentName() string
	GetOutputSchemas() []message.Schema
	// CanCreate never returns an error; it reports whether config is
	// acceptable, used for discovery and fallback.
	CanCreate(cfg Config) bool
	Create(cfg Config) (Connector, error)
	// GetServiceDependencies documents (for auto-wiring tooling) the named
	// services this factory's components depend on. Names are
	// documentation only in this spec.
	GetServiceDependencies() map[string]string
}

// ProcessorFactory constructs Processor instances from declarative config.
type ProcessorFactory interface {
	ComponentName() string
	GetInputSchemas() []message.Schema
	GetOutputSchemas() []message.Schema
	CanCreate(cfg Config) bool
	Create(cfg Config) (Processor, error)
	GetServiceDependencies() map[string]string
}
