package errors

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// New builds an AppError from a plain message instead of wrapping an
// existing error.
func New(code Code, op string, msg string) error {
	return &AppError{
		Code: code,
		Op:   op,
		Err:  errors.New(msg),
	}
}

// CodeOf extracts the error code, walking the wrap chain. Errors that
// were never classified report CodeInternal.
func CodeOf(err error) Code {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return CodeInternal
}

// Retryable reports whether the caller may retry the same request
// unchanged. Only transport-level upstream failures qualify; an explicit
// upstream rejection needs a fresh authorization (new nonce).
func Retryable(err error) bool {
	return CodeOf(err) == CodeUpstreamUnavailable
}
