package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage is returned when the user submits empty or
	// whitespace-only text. Nothing is recorded in that case.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrEmptyReply is wrapped in an ExternalServiceError when the model
	// answers with nothing but whitespace.
	ErrEmptyReply = errors.New("model returned an empty reply")

	// ErrSessionNotFound is returned for unknown or expired session IDs
	ErrSessionNotFound = errors.New("session not found")

	// ErrModelUnavailable is wrapped when no configured model can be loaded
	ErrModelUnavailable = errors.New("no model available")
)

// ExternalServiceError reports a failed, timed out or unavailable call to the
// external language model.
type ExternalServiceError struct {
	Op    string // "generate" or "load"
	Model string
	Err   error
}

func (e *ExternalServiceError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("external service %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("external service %s (%s): %v", e.Op, e.Model, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalServiceError wraps err as an ExternalServiceError unless it
// already is one.
func NewExternalServiceError(op, model string, err error) error {
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Op: op, Model: model, Err: err}
}

// IsExternalServiceError reports whether err is or wraps an ExternalServiceError
func IsExternalServiceError(err error) bool {
	var ext *ExternalServiceError
	return errors.As(err, &ext)
}
