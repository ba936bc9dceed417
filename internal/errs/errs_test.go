package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("pipe closed")
	err := Wrap(NoResult, cause, "solver %s", "mom2d")
	assert.Equal(t, "[NO_RESULT] solver mom2d: pipe closed", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := New(InvalidInput, "bad width %g", -1.0)
	assert.Equal(t, "[INVALID_INPUT] bad width -1", plain.Error())
}

func TestIsKindWalksChain(t *testing.T) {
	inner := New(SingularLineMatrix, "C block")
	outer := Wrap(MalformedResult, fmt.Errorf("geometry W=1e-5: %w", inner), "convert")

	assert.True(t, IsKind(outer, MalformedResult))
	assert.True(t, IsKind(outer, SingularLineMatrix))
	assert.False(t, IsKind(outer, NoResult))
	assert.Equal(t, MalformedResult, KindOf(outer))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWithContextAndRetryable(t *testing.T) {
	err := New(NoResult, "stream closed").WithContext("W", 1e-5)
	require.NotNil(t, err.Context)
	assert.Equal(t, 1e-5, err.Context["W"])
	assert.True(t, Retryable(err))
	assert.False(t, Retryable(New(ProcessUnavailable, "missing")))
}
