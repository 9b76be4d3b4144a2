package message

import "time"

// ExecutionOrigin classifies where an artifact was produced from, per the
// executor's artifact-ID namespace convention ("child:<runbookName>:<localID>").
type ExecutionOrigin string

// Status is the outcome of producing an artifact.
type Status string

const (
	// StatusSuccess indicates the connector or processor returned a message
	// without error.
	StatusSuccess Status = "success"
	// StatusError indicates production failed; Content is empty and Error
	// carries the captured failure string.
	StatusError Status = "error"

	// OriginParent marks an artifact produced directly within the current
	// run (no "child:" namespace prefix on its ID).
	OriginParent ExecutionOrigin = "parent"
)

// ChildOrigin renders the origin for an artifact ID namespaced under a child
// runbook, i.e. "child:<runbookName>".
func ChildOrigin(runbookName string) ExecutionOrigin {
	return ExecutionOrigin("child:" + runbookName)
}

// ExecutionContext annotates a Message with the outcome of the production
// step that created it. It is always attached by the executor, never by a
// connector or processor directly.
type ExecutionContext struct {
	Status          Status
	DurationSeconds float64
	Origin          ExecutionOrigin
	Alias           string
	Error           string
}

// Extensions holds out-of-band annotations attached to a Message by the
// runtime. Only Execution is defined today; the struct exists so future
// annotations do not require changing the Message shape.
type Extensions struct {
	Execution *ExecutionContext
}

// Message is the immutable typed envelope exchanged between components. A
// Message is created once by a connector or processor, persisted to the
// artifact store, and never mutated thereafter: the executor's annotation
// step produces a copy with Extensions populated rather than editing the
// original.
type Message struct {
	ID         string
	Schema     Schema
	Content    any
	Source     string
	Extensions Extensions
	CreatedAt  time.Time
}

// WithExecution returns a shallow copy of m with Extensions.Execution set to
// ec. The original m is left untouched, preserving message immutability.
func (m Message) WithExecution(ec ExecutionContext) Message {
	cp := m
	cp.Extensions = Extensions{Execution: &ec}
	return cp
}
