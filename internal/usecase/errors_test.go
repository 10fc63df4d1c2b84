package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_DetailAndUnwrap(t *testing.T) {
	inner := errors.New("quota exceeded")
	err := newError(ErrorUpstream, "llm_error", inner)

	require.Equal(t, "quota exceeded", err.Detail())
	require.ErrorIs(t, err, inner)
	require.Equal(t, "usecase: UPSTREAM_ERROR (llm_error): quota exceeded", err.Error())

	bare := newError(ErrorInvalidInput, "missing_text", nil)
	require.Equal(t, "missing_text", bare.Detail())
	require.Equal(t, "usecase: INVALID_INPUT (missing_text)", bare.Error())

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.Empty(t, nilErr.Detail())
	require.NoError(t, nilErr.Unwrap())
}

type quotaError struct{}

func (quotaError) Error() string           { return "llm: status 429 from https://llm.internal/v1: quota" }
func (quotaError) ProviderMessage() string { return "quota exceeded" }

func TestError_DetailPrefersProviderMessage(t *testing.T) {
	err := newError(ErrorUpstream, "llm_error", fmt.Errorf("chat: %w", quotaError{}))
	require.Equal(t, "quota exceeded", err.Detail())
	require.Contains(t, err.Error(), "llm.internal")
}

func TestAsError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newError(ErrorNotFound, "product_not_found", nil))
	got, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrorNotFound, got.Code)

	_, ok = AsError(errors.New("plain"))
	require.False(t, ok)
}
