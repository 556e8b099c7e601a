package models

import "time"

// ActivationStatus is the lifecycle state of a contact inside one flow.
// Absence of a record means the contact has not entered.
type ActivationStatus string

const (
	ActivationStatusActive ActivationStatus = "active"
	ActivationStatusExited ActivationStatus = "exited"
)

// ContactActivation tracks one contact's progress through one flow. At most
// one active record exists per (flow, contact) pair at any time.
type ContactActivation struct {
	FlowID        string           `json:"flow_id"  validate:"required"`
	Contact       string           `json:"contact"  validate:"required"`
	Status        ActivationStatus `json:"status"`
	CurrentNodeID *string          `json:"current_node_id,omitempty"`
	EnteredAt     time.Time        `json:"entered_at"`
	ExitedAt      *time.Time       `json:"exited_at,omitempty"`
}

// IsActive reports whether the contact is currently inside the flow.
func (a *ContactActivation) IsActive() bool {
	return a.Status == ActivationStatusActive
}

// Clone returns a deep copy of the activation.
func (a *ContactActivation) Clone() *ContactActivation {
	clone := *a

	if a.CurrentNodeID != nil {
		nodeID := *a.CurrentNodeID
		clone.CurrentNodeID = &nodeID
	}

	if a.ExitedAt != nil {
		exitedAt := *a.ExitedAt
		clone.ExitedAt = &exitedAt
	}

	return &clone
}
