// Package errors defines the hierarchical error taxonomy shared by the
// planner, executor, and validation engine. Errors carry a Kind so callers
// can branch on failure category without string matching, plus a Cause chain
// so errors.Is/As keep working across wrapping layers.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a category of failure from the taxonomy in the compliance
// runtime's error model.
type Kind string

const (
	// ConfigurationError covers invalid runbooks, unknown component types,
	// malformed properties, schema incompatibility, and cycles. Surfaced
	// pre-execution by the planner.
	ConfigurationError Kind = "configuration_error"
	// ConnectorConfigError is raised when a connector's configuration is
	// rejected (missing file, bad DSN, unsupported schema).
	ConnectorConfigError Kind = "connector_config_error"
	// ConnectorExtractionError is raised on runtime extraction failures
	// (I/O, decoding, data-shape mismatch).
	ConnectorExtractionError Kind = "connector_extraction_error"
	// AnalyserProcessingError is raised on runtime processor failures.
	AnalyserProcessingError Kind = "analyser_processing_error"
	// ServiceUnavailable is raised when a requested service is not
	// registered in the container.
	ServiceUnavailable Kind = "service_unavailable"
	// CycleDetected is a planner-only error naming an offending cycle.
	CycleDetected Kind = "cycle_detected"
	// SchemaIncompatible is a planner-only error: no shared schema name
	// between a predecessor's outputs and a successor's inputs.
	SchemaIncompatible Kind = "schema_incompatible"
	// SchemaVersionMismatch is a planner-only error: shared schema name but
	// no overlapping version.
	SchemaVersionMismatch Kind = "schema_version_mismatch"
	// NotImplemented marks a deliberately unsupported path (e.g. fan-in
	// passthrough with more than one input).
	NotImplemented Kind = "not_implemented"
)

// Error is the single structured error type used across the core. Message is
// the human-readable summary; Context carries structured diagnostic fields
// (artifact IDs, schema names, offending cycles, ...); Cause links to an
// underlying error, preserving errors.Is/As through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

// New constructs an Error of the given kind with no context or cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithContext returns a copy of e with the given key/value merged into its
// Context map.
func (e *Error) WithContext(key string, value any) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	cp.Context = ctx
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, supporting errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, enabling
// errors.Is(err, errors.New(SomeKind, "")) style checks against a sentinel
// built purely for its Kind.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Kind == e.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, returning
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
