// Package identity provides a trivial Processor that forwards its single
// input content unchanged, re-typed under a new output schema. It exists as
// a reference implementation of the simplest possible analyser-side
// component and a fixture for planner/executor tests.
package identity

import (
	"context"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

// Processor implements component.Processor by returning its single input's
// content verbatim, stamped with the requested output schema.
type Processor struct {
	accepted []message.Schema
	emitted  []message.Schema
}

// Name implements component.Processor.
func (p *Processor) Name() string { return "identity" }

// InputRequirements implements component.Processor: identity accepts any one
// of its configured schemas, one at a time.
func (p *Processor) InputRequirements() [][]component.InputRequirement {
	reqs := make([][]component.InputRequirement, 0, len(p.accepted))
	for _, s := range p.accepted {
		reqs = append(reqs, []component.InputRequirement{{SchemaName: s.Name, Version: s}})
	}
	return reqs
}

// SupportedOutputSchemas implements component.Processor.
func (p *Processor) SupportedOutputSchemas() []message.Schema { return p.emitted }

// Process implements component.Processor.
func (p *Processor) Process(ctx context.Context, inputs []message.Message, outputSchema message.Schema) (message.Message, error) {
	if len(inputs) != 1 {
		return message.Message{}, rerrors.Newf(rerrors.AnalyserProcessingError, "identity processor requires exactly one input, got %d", len(inputs))
	}
	in := inputs[0]
	return message.Message{
		Schema:  outputSchema,
		Content: in.Content,
		Source:  in.Source,
	}, nil
}

// Factory implements component.ProcessorFactory for Processor.
type Factory struct {
	// Schemas lists every schema identity accepts and re-emits unchanged
	// (input name/version == output name/version).
	Schemas []message.Schema
}

// ComponentName implements component.ProcessorFactory.
func (Factory) ComponentName() string { return "identity" }

// GetInputSchemas implements component.ProcessorFactory.
func (f Factory) GetInputSchemas() []message.Schema { return f.Schemas }

// GetOutputSchemas implements component.ProcessorFactory.
func (f Factory) GetOutputSchemas() []message.Schema { return f.Schemas }

// CanCreate implements component.ProcessorFactory: identity accepts any
// config, including empty.
func (Factory) CanCreate(component.Config) bool { return true }

// Create implements component.ProcessorFactory.
func (f Factory) Create(component.Config) (component.Processor, error) {
	return &Processor{accepted: f.Schemas, emitted: f.Schemas}, nil
}

// GetServiceDependencies implements component.ProcessorFactory.
func (Factory) GetServiceDependencies() map[string]string { return nil }
