// Package testsupport provides minimal connector/processor doubles shared
// across runtime package tests, so each test does not re-implement the
// component.Connector/Processor contracts from scratch.
package testsupport

import (
	"context"
	"time"

	"goa.design/compliance-runtime/runtime/component"
	"goa.design/compliance-runtime/runtime/message"
)

// StaticConnectorFactory builds a StaticConnector that always returns Msg (or
// ExtractError, if set) regardless of requested output schema.
type StaticConnectorFactory struct {
	Name         string
	Schemas      []message.Schema
	Msg          message.Message
	ExtractError error
	// Delay, when set, blocks Extract for the given duration using
	// time.Sleep rather than a ctx-aware timer, the same way filesystem.Extract
	// and patternmatch.Process never consult ctx. Useful for exercising the
	// executor's run-wide deadline against a connector that ignores cancellation.
	Delay time.Duration
}

// ComponentName implements component.ConnectorFactory.
func (f StaticConnectorFactory) ComponentName() string { return f.Name }

// GetOutputSchemas implements component.ConnectorFactory.
func (f StaticConnectorFactory) GetOutputSchemas() []message.Schema { return f.Schemas }

// CanCreate implements component.ConnectorFactory; it never rejects.
func (f StaticConnectorFactory) CanCreate(component.Config) bool { return true }

// Create implements component.ConnectorFactory.
func (f StaticConnectorFactory) Create(component.Config) (component.Connector, error) {
	return StaticConnector{factory: f}, nil
}

// GetServiceDependencies implements component.ConnectorFactory.
func (f StaticConnectorFactory) GetServiceDependencies() map[string]string { return nil }

// StaticConnector returns a fixed Message or error on Extract, useful for
// exercising the planner and executor without real I/O.
type StaticConnector struct {
	factory StaticConnectorFactory
}

// Name implements component.Connector.
func (c StaticConnector) Name() string { return c.factory.Name }

// SupportedOutputSchemas implements component.Connector.
func (c StaticConnector) SupportedOutputSchemas() []message.Schema { return c.factory.Schemas }

// Extract implements component.Connector.
func (c StaticConnector) Extract(_ context.Context, outputSchema message.Schema) (message.Message, error) {
	if c.factory.Delay > 0 {
		time.Sleep(c.factory.Delay)
	}
	if c.factory.ExtractError != nil {
		return message.Message{}, c.factory.ExtractError
	}
	msg := c.factory.Msg
	msg.Schema = outputSchema
	return msg, nil
}

// PassthroughProcessorFactory builds a PassthroughProcessor accepting Inputs
// as a single required combination and declaring Outputs.
type PassthroughProcessorFactory struct {
	Name          string
	Inputs        []message.Schema
	Outputs       []message.Schema
	ProcessError  error
}

// ComponentName implements component.ProcessorFactory.
func (f PassthroughProcessorFactory) ComponentName() string { return f.Name }

// GetInputSchemas implements component.ProcessorFactory.
func (f PassthroughProcessorFactory) GetInputSchemas() []message.Schema { return f.Inputs }

// GetOutputSchemas implements component.ProcessorFactory.
func (f PassthroughProcessorFactory) GetOutputSchemas() []message.Schema { return f.Outputs }

// CanCreate implements component.ProcessorFactory; it never rejects.
func (f PassthroughProcessorFactory) CanCreate(component.Config) bool { return true }

// Create implements component.ProcessorFactory.
func (f PassthroughProcessorFactory) Create(component.Config) (component.Processor, error) {
	return PassthroughProcessor{factory: f}, nil
}

// GetServiceDependencies implements component.ProcessorFactory.
func (f PassthroughProcessorFactory) GetServiceDependencies() map[string]string { return nil }

// PassthroughProcessor returns its first input's content verbatim, tagged
// with the requested output schema, or ProcessError if set.
type PassthroughProcessor struct {
	factory PassthroughProcessorFactory
}

// Name implements component.Processor.
func (p PassthroughProcessor) Name() string { return p.factory.Name }

// InputRequirements implements component.Processor: a single conjunction
// naming every declared input schema by minimum version.
func (p PassthroughProcessor) InputRequirements() [][]component.InputRequirement {
	reqs := make([]component.InputRequirement, 0, len(p.factory.Inputs))
	for _, s := range p.factory.Inputs {
		reqs = append(reqs, component.InputRequirement{SchemaName: s.Name, Version: s})
	}
	return [][]component.InputRequirement{reqs}
}

// SupportedOutputSchemas implements component.Processor.
func (p PassthroughProcessor) SupportedOutputSchemas() []message.Schema { return p.factory.Outputs }

// Process implements component.Processor.
func (p PassthroughProcessor) Process(_ context.Context, inputs []message.Message, outputSchema message.Schema) (message.Message, error) {
	if p.factory.ProcessError != nil {
		return message.Message{}, p.factory.ProcessError
	}
	if len(inputs) == 0 {
		return message.Message{Schema: outputSchema}, nil
	}
	out := inputs[0]
	out.Schema = outputSchema
	return out, nil
}
