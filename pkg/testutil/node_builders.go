// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/maqel/zapflow/pkg/models"
)

// CreateTestNode creates a response node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       uuid.New().String(),
		Kind:     models.KindResponse,
		Position: models.Position{X: 100, Y: 200},
		Config:   models.ResponseConfig{Type: models.ResponseText, Content: "hello"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as a WhatsApp trigger node.
func WithTriggerNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.KindWhatsAppTrigger
		n.Config = models.WhatsAppTriggerConfig{InstanceID: "instance-1"}
	}
}

// WithKind sets the node kind and a minimal valid config for it.
func WithKind(kind models.NodeKind, config models.NodeConfig) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
		n.Config = config
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// CreateTestFlow creates an empty draft flow.
func CreateTestFlow() *models.Flow {
	return &models.Flow{
		ID:     uuid.New().String(),
		Name:   "Test Flow",
		Status: models.FlowStatusDraft,
		Nodes:  []*models.Node{},
		Edges:  []*models.Edge{},
	}
}

// CreateTestFlowWithNodes creates a flow with a trigger wired to a response
// and a terminal end node after it.
func CreateTestFlowWithNodes() *models.Flow {
	flow := CreateTestFlow()

	trigger := CreateTestNode(WithTriggerNode(), WithID("trigger-1"))
	response := CreateTestNode(WithID("response-1"))
	end := CreateTestNode(WithKind(models.KindEnd, models.EndConfig{}), WithID("end-1"))

	flow.Nodes = []*models.Node{trigger, response, end}
	flow.Edges = []*models.Edge{
		CreateTestEdge("trigger-1", "response-1"),
		CreateTestEdge("response-1", "end-1"),
	}

	return flow
}

// CreateTestEdge creates an edge between two nodes.
func CreateTestEdge(sourceNodeID, targetNodeID string) *models.Edge {
	return &models.Edge{
		ID:     uuid.New().String(),
		Source: sourceNodeID,
		Target: targetNodeID,
	}
}
