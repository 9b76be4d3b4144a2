// Package runbook defines the pure data model for a declarative runbook: the
// artifacts it names, their sources/inputs/processes, run-wide config, and
// alias bindings.
package runbook

import "goa.design/compliance-runtime/runtime/component"

// Config is run-wide execution configuration.
type Config struct {
	// MaxConcurrency bounds the number of artifacts produced in parallel.
	// Must be >= 1. Defaults to 4 when loaded from YAML.
	MaxConcurrency int
	// Timeout bounds total run duration, in seconds. Must be > 0. Defaults
	// to 3600 when loaded from YAML.
	Timeout float64
}

// DefaultMaxConcurrency is used when a runbook omits config.maxConcurrency.
const DefaultMaxConcurrency = 4

// DefaultTimeoutSeconds is used when a runbook omits config.timeout.
const DefaultTimeoutSeconds = 3600

// SourceConfig names a connector type plus its declarative properties.
type SourceConfig struct {
	Type       string
	Properties component.Config
}

// ProcessConfig names a processor type plus its declarative properties. A
// nil ProcessConfig on a derived artifact means passthrough.
type ProcessConfig struct {
	Type       string
	Properties component.Config
}

// ArtifactDefinition is one node in the runbook's artifact graph: either a
// leaf (Source set, Inputs nil) or derived (Inputs set, Source nil).
type ArtifactDefinition struct {
	// Source identifies the connector for a leaf artifact. Mutually
	// exclusive with Inputs.
	Source *SourceConfig
	// Inputs lists the predecessor artifact IDs for a derived artifact.
	// Mutually exclusive with Source. Normalised so a single string input
	// becomes a one-element slice.
	Inputs []string
	// Process identifies the processor for a derived artifact. Nil means
	// passthrough (the single input is returned verbatim).
	Process *ProcessConfig
	// Optional, when true, means failure of this artifact only changes log
	// severity; the cascade-skip behaviour is unchanged (see DESIGN.md on
	// the spec's deliberate conservative choice).
	Optional bool
	// Output marks this artifact as user-visible in the final report.
	Output bool
}

// IsLeaf reports whether this artifact is produced by a connector.
func (a ArtifactDefinition) IsLeaf() bool {
	return a.Source != nil
}

// Runbook is the pure data model loaded from a runbook file (or constructed
// programmatically) describing artifacts, derivations, aliases, and
// run-wide configuration.
type Runbook struct {
	Name        string
	Description string
	Artifacts   map[string]ArtifactDefinition
	Aliases     map[string]string
	Config      Config
}

// WithDefaults returns a copy of rb with zero-valued Config fields replaced
// by their documented defaults.
func (rb Runbook) WithDefaults() Runbook {
	cp := rb
	if cp.Config.MaxConcurrency <= 0 {
		cp.Config.MaxConcurrency = DefaultMaxConcurrency
	}
	if cp.Config.Timeout <= 0 {
		cp.Config.Timeout = DefaultTimeoutSeconds
	}
	return cp
}
