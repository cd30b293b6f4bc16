package guests

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BackendError wraps a failure of the record store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *BackendError) Unwrap() error { return e.Err }

// backend wraps err unless it is already a ValidationError or BackendError.
func backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var be *BackendError
	if errors.As(err, &ve) || errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
