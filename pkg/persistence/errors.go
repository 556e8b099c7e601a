package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrActivationNotFound indicates no activation exists for the given
	// (flow, contact) pair.
	ErrActivationNotFound = errors.New("activation not found")

	// ErrInvalidSortField indicates an unsupported sort field was requested.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// FlowError wraps flow storage errors with operation context.
type FlowError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save")
	FlowID string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// IsFlowNotFound reports whether err means a missing flow.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsActivationNotFound reports whether err means a missing activation.
func IsActivationNotFound(err error) bool {
	return errors.Is(err, ErrActivationNotFound)
}

// IsInvalidSortField reports whether err means an unsupported sort field.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}
