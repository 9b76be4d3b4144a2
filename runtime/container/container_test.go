package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/compliance-runtime/runtime/container"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestSingletonIsMemoized(t *testing.T) {
	c := container.New()
	calls := 0
	container.Register[greeter](c, func() (any, error) {
		calls++
		return englishGreeter{}, nil
	}, container.Singleton)

	first, err := container.GetService[greeter](c)
	require.NoError(t, err)
	second, err := container.GetService[greeter](c)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestTransientAlwaysRebuilds(t *testing.T) {
	c := container.New()
	calls := 0
	container.Register[greeter](c, func() (any, error) {
		calls++
		return englishGreeter{}, nil
	}, container.Transient)

	_, err := container.GetService[greeter](c)
	require.NoError(t, err)
	_, err = container.GetService[greeter](c)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
}

func TestUnregisteredServiceErrors(t *testing.T) {
	c := container.New()
	_, err := container.GetService[greeter](c)
	require.Error(t, err)
}

func TestFactoryErrorPropagates(t *testing.T) {
	c := container.New()
	sentinel := errors.New("construction failed")
	container.Register[greeter](c, func() (any, error) {
		return nil, sentinel
	}, container.Singleton)

	_, err := container.GetService[greeter](c)
	require.ErrorIs(t, err, sentinel)
}

func TestNilFactoryResultErrors(t *testing.T) {
	c := container.New()
	container.Register[greeter](c, func() (any, error) {
		return nil, nil
	}, container.Singleton)

	_, err := container.GetService[greeter](c)
	require.Error(t, err)
}
