package core

import "github.com/pkg/errors"

// FieldError attaches an error message to a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries a top-level error and/or per-field errors for
// requests that failed domain validation.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an integrity problem that must stop the process.
type shutdown struct {
	message string
}

// NewShutdownError returns an error that requests a graceful shutdown.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string { return s.message }

// IsShutdown reports whether err (or its cause) requests a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
