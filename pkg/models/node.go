package models

import (
	"encoding/json"
	"fmt"
)

// NodeKind identifies one of the closed set of node types. The string values
// are the durable wire representation shared with storage and the execution
// runtime.
type NodeKind string

const (
	KindWhatsAppTrigger NodeKind = "whatsappTrigger"
	KindTypebotTrigger  NodeKind = "typebotTrigger"
	KindCondition       NodeKind = "condition"
	KindDelay           NodeKind = "delay"
	KindResponse        NodeKind = "response"
	KindSpreadsheet     NodeKind = "spreadsheet"
	KindOpenAI          NodeKind = "openai"
	KindEnd             NodeKind = "end"
)

// AllNodeKinds lists every kind in the closed set.
var AllNodeKinds = []NodeKind{
	KindWhatsAppTrigger,
	KindTypebotTrigger,
	KindCondition,
	KindDelay,
	KindResponse,
	KindSpreadsheet,
	KindOpenAI,
	KindEnd,
}

// Valid reports whether the kind is part of the closed set.
func (k NodeKind) Valid() bool {
	for _, kind := range AllNodeKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// IsTrigger reports whether the kind is an entry-point trigger.
func (k NodeKind) IsTrigger() bool {
	return k == KindWhatsAppTrigger || k == KindTypebotTrigger
}

// IsIntegration reports whether the kind is a pass-through integration call.
func (k NodeKind) IsIntegration() bool {
	return k == KindSpreadsheet || k == KindOpenAI
}

// IsTerminal reports whether the kind ends a contact's run.
func (k NodeKind) IsTerminal() bool {
	return k == KindEnd
}

// Position is a display-only 2D coordinate. It never affects semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step in a flow graph. Config's concrete type always matches
// Kind; a kind change replaces the config atomically.
type Node struct {
	ID       string     `json:"id"   validate:"required"`
	Kind     NodeKind   `json:"kind" validate:"required"`
	Position Position   `json:"position"`
	Config   NodeConfig `json:"config"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n
	if n.Config != nil {
		clone.Config = n.Config.Clone()
	}

	return &clone
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Position Position        `json:"position"`
	Config   json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes the node, resolving the config payload to the typed
// variant declared by the node's kind.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode node: %w", err)
	}

	config, err := DecodeConfig(raw.Kind, raw.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Kind = raw.Kind
	n.Position = raw.Position
	n.Config = config

	return nil
}
