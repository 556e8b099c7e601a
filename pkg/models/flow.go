// Package models defines the core domain models for messaging-flow automation.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft  FlowStatus = "draft"  // Editable, not consumable by the execution runtime
	FlowStatusActive FlowStatus = "active" // Validated, consumable by the execution runtime
)

// Flow represents a messaging flow: a directed graph of typed nodes bound to
// one messaging source. An empty graph is a valid flow.
type Flow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"       validate:"required,min=3"`
	Status    FlowStatus `json:"status"     validate:"required"`
	Nodes     []*Node    `json:"nodes"`
	Edges     []*Edge    `json:"edges"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EdgeByID returns the edge with the given ID, or nil.
func (f *Flow) EdgeByID(id string) *Edge {
	for _, edge := range f.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

// TriggerNodes returns all trigger-kind nodes in the flow.
func (f *Flow) TriggerNodes() []*Node {
	triggers := make([]*Node, 0, 1)

	for _, node := range f.Nodes {
		if node.Kind.IsTrigger() {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// OutgoingEdges returns the edges leaving the given node.
func (f *Flow) OutgoingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, edge := range f.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// IncomingEdges returns the edges entering the given node.
func (f *Flow) IncomingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0)

	for _, edge := range f.Edges {
		if edge.Target == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// Clone returns a deep copy of the flow. Node configs are copied by value so
// a mutation on the clone is never observable through the original.
func (f *Flow) Clone() *Flow {
	clone := *f

	clone.Nodes = make([]*Node, len(f.Nodes))
	for i, node := range f.Nodes {
		clone.Nodes[i] = node.Clone()
	}

	clone.Edges = make([]*Edge, len(f.Edges))
	for i, edge := range f.Edges {
		edgeCopy := *edge
		if edge.SourceOutput != nil {
			output := *edge.SourceOutput
			edgeCopy.SourceOutput = &output
		}

		clone.Edges[i] = &edgeCopy
	}

	if f.DeletedAt != nil {
		deletedAt := *f.DeletedAt
		clone.DeletedAt = &deletedAt
	}

	return &clone
}
