// Package container provides a typed dependency-resolution registry keyed by
// service interface, modeled on the component-registry/DI pattern the
// compliance runtime's component factories rely on for service injection.
package container

import (
	"fmt"
	"reflect"
	"sync"

	rerrors "goa.design/compliance-runtime/runtime/errors"
)

// Lifetime controls how often a service factory is invoked.
type Lifetime int

const (
	// Singleton services are constructed at most once across the
	// container's lifetime; the instance is memoised.
	Singleton Lifetime = iota
	// Transient services are constructed on every resolution. The artifact
	// store must be registered as Transient so each run gets a fresh
	// instance.
	Transient
)

// Factory constructs a service instance. It must not call back into the
// container (no cyclic resolution).
type Factory func() (any, error)

type descriptor struct {
	factory  Factory
	lifetime Lifetime

	mu       sync.Mutex
	built    bool
	instance any
}

// Container is a typed service registry. Registration is not required to be
// thread-safe; once the registration phase is complete, GetService is safe
// for concurrent use.
type Container struct {
	mu       sync.RWMutex
	services map[reflect.Type]*descriptor
}

// New returns an empty Container.
func New() *Container {
	return &Container{services: make(map[reflect.Type]*descriptor)}
}

// Register binds the service type T (given as the type parameter, e.g.
// Register[MyService](c, ...) for an interface type) to a factory and
// lifetime. Re-registering the same type replaces the prior descriptor.
func Register[T any](c *Container, factory Factory, lifetime Lifetime) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[t] = &descriptor{factory: factory, lifetime: lifetime}
}

// GetService resolves an instance of T. For Singleton services the factory
// runs at most once; for Transient services it runs on every call. Returns a
// ServiceUnavailable error if T was never registered or if the factory
// returns a nil instance.
func GetService[T any](c *Container) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	c.mu.RLock()
	d, ok := c.services[t]
	c.mu.RUnlock()
	if !ok {
		return zero, rerrors.Newf(rerrors.ServiceUnavailable, "service %s is not registered", t)
	}

	instance, err := d.resolve()
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, rerrors.Newf(rerrors.ServiceUnavailable, "service %s factory returned incompatible type %T", t, instance)
	}
	return typed, nil
}

func (d *descriptor) resolve() (any, error) {
	if d.lifetime == Transient {
		instance, err := d.factory()
		if err != nil {
			return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "transient service factory failed", err)
		}
		if instance == nil {
			return nil, rerrors.New(rerrors.ServiceUnavailable, "transient service factory returned nil")
		}
		return instance, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.built {
		return d.instance, nil
	}
	instance, err := d.factory()
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ServiceUnavailable, "singleton service factory failed", err)
	}
	if instance == nil {
		return nil, rerrors.New(rerrors.ServiceUnavailable, "singleton service factory returned nil")
	}
	d.instance = instance
	d.built = true
	return d.instance, nil
}

// MustRegisterDescription returns a human-readable description of t, useful
// in error messages and logs when T cannot be spelled out directly (e.g.
// from reflect-based callers).
func MustRegisterDescription(t reflect.Type) string {
	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}
