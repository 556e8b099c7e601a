// Package web provides HTTP request and response types for the flow API.
package web

import (
	"encoding/json"

	"github.com/maqel/zapflow/pkg/models"
)

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name string `json:"name" validate:"required,min=3"`
}

// RenameFlowRequest represents the request body for renaming a flow.
type RenameFlowRequest struct {
	Name string `json:"name" validate:"required,min=3"`
}

// CreateNodeRequest represents the request body for adding a node to a flow's
// graph. Config is decoded against the kind's typed shape; unknown fields are
// rejected.
type CreateNodeRequest struct {
	Kind     string          `json:"kind"     validate:"required"`
	Position models.Position `json:"position"`
	Config   json.RawMessage `json:"config"   validate:"required"`
}

// UpdateNodeConfigRequest carries a partial config document merged into the
// node's existing config.
type UpdateNodeConfigRequest struct {
	Config json.RawMessage `json:"config" validate:"required"`
}

// ChangeNodeKindRequest atomically replaces a node's kind and config.
type ChangeNodeKindRequest struct {
	Kind   string          `json:"kind"   validate:"required"`
	Config json.RawMessage `json:"config" validate:"required"`
}

// MoveNodeRequest updates a node's editor position.
type MoveNodeRequest struct {
	Position models.Position `json:"position"`
}

// CreateEdgeRequest connects two nodes, optionally through a condition
// branch output.
type CreateEdgeRequest struct {
	Source         string  `json:"source"                   validate:"required"`
	Target         string  `json:"target"                   validate:"required"`
	SourceOutputID *string `json:"sourceOutputId,omitempty"`
}

// AdmitContactRequest brings a contact into the flow at an entry node.
type AdmitContactRequest struct {
	Contact     string `json:"contact"     validate:"required"`
	EntryNodeID string `json:"entryNodeId" validate:"required"`
}

// AdvanceContactRequest moves an active contact to its next node.
type AdvanceContactRequest struct {
	Contact string `json:"contact" validate:"required"`
	NodeID  string `json:"nodeId"  validate:"required"`
}
