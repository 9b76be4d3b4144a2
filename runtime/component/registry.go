package component

import (
	"sort"
	"sync"

	rerrors "goa.design/compliance-runtime/runtime/errors"
)

// Registry maps component name to its factory, for connectors and
// processors independently. It is constructed at startup and read-only
// during execution.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]ConnectorFactory
	processors map[string]ProcessorFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]ConnectorFactory),
		processors: make(map[string]ProcessorFactory),
	}
}

// RegisterConnector binds a connector factory under ComponentName(). It
// replaces any prior registration under the same name.
func (r *Registry) RegisterConnector(f ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[f.ComponentName()] = f
}

// RegisterProcessor binds a processor factory under ComponentName(). It
// replaces any prior registration under the same name.
func (r *Registry) RegisterProcessor(f ProcessorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[f.ComponentName()] = f
}

// ConnectorFactory looks up a registered connector factory by name.
func (r *Registry) ConnectorFactory(name string) (ConnectorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.connectors[name]
	if !ok {
		return nil, rerrors.Newf(rerrors.ConfigurationError, "unknown connector type %q", name)
	}
	return f, nil
}

// ProcessorFactory looks up a registered processor factory by name.
func (r *Registry) ProcessorFactory(name string) (ProcessorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.processors[name]
	if !ok {
		return nil, rerrors.Newf(rerrors.ConfigurationError, "unknown processor type %q", name)
	}
	return f, nil
}

// ConnectorFactories returns a snapshot of registered connector factories,
// sorted by component name, useful for discovery.
func (r *Registry) ConnectorFactories() []ConnectorFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnectorFactory, 0, len(r.connectors))
	for _, f := range r.connectors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComponentName() < out[j].ComponentName() })
	return out
}

// ProcessorFactories returns a snapshot of registered processor factories,
// sorted by component name, useful for discovery.
func (r *Registry) ProcessorFactories() []ProcessorFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProcessorFactory, 0, len(r.processors))
	for _, f := range r.processors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComponentName() < out[j].ComponentName() })
	return out
}
