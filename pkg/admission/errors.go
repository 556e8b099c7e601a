package admission

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowNotFound indicates the target flow does not exist.
	ErrFlowNotFound = errors.New("flow not found")
	// ErrUnknownNode indicates the referenced node is not part of the flow's
	// graph.
	ErrUnknownNode = errors.New("node not found in flow")
	// ErrNotActive indicates an advance was attempted for a contact that is
	// not currently inside the flow.
	ErrNotActive = errors.New("contact is not active in flow")
)

// Error wraps admission failures with the operation and key that caused them.
type Error struct {
	Op      string
	FlowID  string
	Contact string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("admission %s %s/%s: %v", e.Op, e.FlowID, e.Contact, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
