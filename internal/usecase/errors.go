package usecase

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure for the transport layer.
type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error carries a code plus a short machine-readable reason such as
// "missing_text" or "llm_error".
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProviderError is a model-client failure whose message came from the
// provider and may be shown to callers.
type ProviderError interface {
	error
	ProviderMessage() string
}

// Detail is the provider message when one is wrapped, else the wrapped error
// text, else the reason.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	var pe ProviderError
	if errors.As(e.Err, &pe) {
		return pe.ProviderMessage()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr != nil {
		return ucErr, true
	}
	return nil, false
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
