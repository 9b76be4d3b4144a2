package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	rerrors "goa.design/compliance-runtime/runtime/errors"
)

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := rerrors.Wrap(rerrors.ConnectorExtractionError, "extract failed", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, err.Unwrap())
}

func TestKindOf(t *testing.T) {
	err := rerrors.New(rerrors.CycleDetected, "cycle")
	kind, ok := rerrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rerrors.CycleDetected, kind)

	_, ok = rerrors.KindOf(fmt.Errorf("plain"))
	require.False(t, ok)
}

func TestIsMatchesByKind(t *testing.T) {
	a := rerrors.New(rerrors.SchemaIncompatible, "a")
	b := rerrors.New(rerrors.SchemaIncompatible, "b")
	c := rerrors.New(rerrors.SchemaVersionMismatch, "c")

	require.ErrorIs(t, a, b)
	require.NotErrorIs(t, a, c)
}

func TestWithContextAccumulates(t *testing.T) {
	err := rerrors.New(rerrors.ConfigurationError, "bad config").
		WithContext("artifact", "foo").
		WithContext("field", "inputs")

	require.Equal(t, "foo", err.Context["artifact"])
	require.Equal(t, "inputs", err.Context["field"])
}
