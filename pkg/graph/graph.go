package graph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/maqel/zapflow/pkg/models"
)

// AddNode adds a node of the given kind to the flow and returns the new flow
// value together with the created node. The config must already match the
// kind; trigger kinds are limited to one node per external source.
func AddNode(
	flow *models.Flow,
	kind models.NodeKind,
	config models.NodeConfig,
	position models.Position,
) (*models.Flow, *models.Node, error) {
	if config == nil || config.ConfigKind() != kind {
		return nil, nil, fmt.Errorf("%w: config kind %q does not match node kind %q",
			models.ErrInvalidNodeConfig, configKind(config), kind)
	}

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	if kind.IsTrigger() {
		for _, node := range flow.Nodes {
			if node.Kind == kind {
				return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateTrigger, kind)
			}
		}
	}

	next := flow.Clone()
	node := &models.Node{
		ID:       uuid.New().String(),
		Kind:     kind,
		Position: position,
		Config:   config.Clone(),
	}
	next.Nodes = append(next.Nodes, node)

	return next, node, nil
}

// UpdateNodeConfig applies a partial config update to a node, keeping its
// kind. The merged config is validated before anything becomes visible.
func UpdateNodeConfig(flow *models.Flow, nodeID string, partial json.RawMessage) (*models.Flow, *models.Node, error) {
	existing := flow.NodeByID(nodeID)
	if existing == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	merged, err := models.MergeConfig(existing.Config, partial)
	if err != nil {
		return nil, nil, err
	}

	next := flow.Clone()
	node := next.NodeByID(nodeID)
	node.Config = merged

	pruneInvalidEdges(next, node)

	return next, node, nil
}

// ChangeNodeKind atomically replaces a node's kind and config. Old and new
// config shapes are never merged. Edges that the new kind cannot carry are
// pruned in the same step.
func ChangeNodeKind(
	flow *models.Flow,
	nodeID string,
	kind models.NodeKind,
	config models.NodeConfig,
) (*models.Flow, *models.Node, error) {
	existing := flow.NodeByID(nodeID)
	if existing == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	if config == nil || config.ConfigKind() != kind {
		return nil, nil, fmt.Errorf("%w: config kind %q does not match node kind %q",
			models.ErrInvalidNodeConfig, configKind(config), kind)
	}

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	if kind.IsTrigger() && kind != existing.Kind {
		for _, node := range flow.Nodes {
			if node.Kind == kind {
				return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateTrigger, kind)
			}
		}
	}

	next := flow.Clone()
	node := next.NodeByID(nodeID)
	node.Kind = kind
	node.Config = config.Clone()

	pruneInvalidEdges(next, node)

	return next, node, nil
}

// MoveNode updates a node's display position. Positions never affect
// semantics, so no validation beyond existence applies.
func MoveNode(flow *models.Flow, nodeID string, position models.Position) (*models.Flow, error) {
	if flow.NodeByID(nodeID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	next := flow.Clone()
	next.NodeByID(nodeID).Position = position

	return next, nil
}

// RemoveNode removes a node and every edge referencing it. Removing a
// nonexistent node is a no-op.
func RemoveNode(flow *models.Flow, nodeID string) *models.Flow {
	if flow.NodeByID(nodeID) == nil {
		return flow
	}

	next := flow.Clone()

	nodes := next.Nodes[:0]
	for _, node := range next.Nodes {
		if node.ID != nodeID {
			nodes = append(nodes, node)
		}
	}
	next.Nodes = nodes

	edges := next.Edges[:0]
	for _, edge := range next.Edges {
		if edge.Source != nodeID && edge.Target != nodeID {
			edges = append(edges, edge)
		}
	}
	next.Edges = edges

	return next
}

// AddEdge connects two nodes. SourceOutput is required when the source is a
// condition node and must name one of its declared branch outputs; it is
// forbidden otherwise.
func AddEdge(flow *models.Flow, sourceID, targetID string, sourceOutput *string) (*models.Flow, *models.Edge, error) {
	source := flow.NodeByID(sourceID)
	if source == nil {
		return nil, nil, fmt.Errorf("%w: source %s", ErrDanglingReference, sourceID)
	}

	target := flow.NodeByID(targetID)
	if target == nil {
		return nil, nil, fmt.Errorf("%w: target %s", ErrDanglingReference, targetID)
	}

	if source.Kind.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: no edge may leave terminal node %s", ErrInvalidEdge, sourceID)
	}

	if target.Kind.IsTrigger() {
		return nil, nil, fmt.Errorf("%w: trigger node %s accepts no inbound edges", ErrInvalidEdge, targetID)
	}

	if source.Kind == models.KindCondition {
		condition, ok := source.Config.(models.ConditionConfig)
		if !ok || sourceOutput == nil || !condition.HasOutput(*sourceOutput) {
			return nil, nil, fmt.Errorf("%w: condition node %s requires a declared output id",
				ErrInvalidEdge, sourceID)
		}
	} else if sourceOutput != nil {
		return nil, nil, fmt.Errorf("%w: node %s has a single output", ErrInvalidEdge, sourceID)
	}

	candidate := &models.Edge{Source: sourceID, Target: targetID, SourceOutput: sourceOutput}
	for _, edge := range flow.Edges {
		if edge.SameRoute(candidate) {
			return nil, nil, fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, sourceID, targetID)
		}
	}

	next := flow.Clone()

	candidate.ID = uuid.New().String()
	if sourceOutput != nil {
		output := *sourceOutput
		candidate.SourceOutput = &output
	}

	next.Edges = append(next.Edges, candidate)

	return next, candidate, nil
}

// RemoveEdge removes an edge by id.
func RemoveEdge(flow *models.Flow, edgeID string) (*models.Flow, error) {
	if flow.EdgeByID(edgeID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	next := flow.Clone()

	edges := next.Edges[:0]
	for _, edge := range next.Edges {
		if edge.ID != edgeID {
			edges = append(edges, edge)
		}
	}
	next.Edges = edges

	return next, nil
}

// pruneInvalidEdges drops edges the node can no longer carry after a kind or
// config change: outputs a condition no longer declares, outbound edges of a
// terminal, inbound edges of a trigger. A removed branch never reassigns its
// edge to another branch.
func pruneInvalidEdges(flow *models.Flow, node *models.Node) {
	edges := flow.Edges[:0]

	for _, edge := range flow.Edges {
		if edgeStillValid(edge, node) {
			edges = append(edges, edge)
		}
	}

	flow.Edges = edges
}

func edgeStillValid(edge *models.Edge, node *models.Node) bool {
	if edge.Target == node.ID && node.Kind.IsTrigger() {
		return false
	}

	if edge.Source != node.ID {
		return true
	}

	if node.Kind.IsTerminal() {
		return false
	}

	if node.Kind == models.KindCondition {
		condition, ok := node.Config.(models.ConditionConfig)

		return ok && edge.SourceOutput != nil && condition.HasOutput(*edge.SourceOutput)
	}

	return edge.SourceOutput == nil
}

func configKind(config models.NodeConfig) models.NodeKind {
	if config == nil {
		return ""
	}

	return config.ConfigKind()
}
