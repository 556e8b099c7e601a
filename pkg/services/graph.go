package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maqel/zapflow/pkg/eventbus"
	"github.com/maqel/zapflow/pkg/events"
	"github.com/maqel/zapflow/pkg/graph"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
)

// Graph applies graph mutations to persisted flows. Every mutation loads the
// whole document, transforms it by value and saves the result, so a failed
// rule never leaves a half-applied graph behind.
type Graph struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

// NewGraph creates a new graph mutation service.
func NewGraph(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Graph {
	return &Graph{
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger.With("module", "graph_service"),
	}
}

// AddNode decodes and validates the config for the kind, then appends a new
// node to the flow.
func (g *Graph) AddNode(ctx context.Context, flowID string, kind models.NodeKind, position models.Position, rawConfig json.RawMessage) (*models.Node, error) {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	config, err := models.DecodeConfig(kind, rawConfig)
	if err != nil {
		return nil, err
	}

	next, node, err := graph.AddNode(flow, kind, config, position)
	if err != nil {
		return nil, err
	}

	if err := g.save(ctx, next); err != nil {
		return nil, err
	}

	return node, nil
}

// UpdateNodeConfig merges a partial config document into the node's config.
func (g *Graph) UpdateNodeConfig(ctx context.Context, flowID, nodeID string, partial json.RawMessage) (*models.Node, error) {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	next, node, err := graph.UpdateNodeConfig(flow, nodeID, partial)
	if err != nil {
		return nil, err
	}

	if err := g.save(ctx, next); err != nil {
		return nil, err
	}

	return node, nil
}

// ChangeNodeKind atomically replaces the node's kind and config.
func (g *Graph) ChangeNodeKind(ctx context.Context, flowID, nodeID string, kind models.NodeKind, rawConfig json.RawMessage) (*models.Node, error) {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	config, err := models.DecodeConfig(kind, rawConfig)
	if err != nil {
		return nil, err
	}

	next, node, err := graph.ChangeNodeKind(flow, nodeID, kind, config)
	if err != nil {
		return nil, err
	}

	if err := g.save(ctx, next); err != nil {
		return nil, err
	}

	return node, nil
}

// MoveNode updates a node's editor position.
func (g *Graph) MoveNode(ctx context.Context, flowID, nodeID string, position models.Position) error {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return err
	}

	next, err := graph.MoveNode(flow, nodeID, position)
	if err != nil {
		return err
	}

	return g.save(ctx, next)
}

// RemoveNode removes a node and every edge touching it. Removing an unknown
// node is a no-op.
func (g *Graph) RemoveNode(ctx context.Context, flowID, nodeID string) error {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return err
	}

	next := graph.RemoveNode(flow, nodeID)
	if next == flow {
		// Nothing changed, skip the write.
		return nil
	}

	return g.save(ctx, next)
}

// AddEdge connects two nodes, optionally through a condition output.
func (g *Graph) AddEdge(ctx context.Context, flowID, sourceID, targetID string, sourceOutput *string) (*models.Edge, error) {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	next, edge, err := graph.AddEdge(flow, sourceID, targetID, sourceOutput)
	if err != nil {
		return nil, err
	}

	if err := g.save(ctx, next); err != nil {
		return nil, err
	}

	return edge, nil
}

// RemoveEdge disconnects two nodes.
func (g *Graph) RemoveEdge(ctx context.Context, flowID, edgeID string) error {
	flow, err := g.load(ctx, flowID)
	if err != nil {
		return err
	}

	next, err := graph.RemoveEdge(flow, edgeID)
	if err != nil {
		return err
	}

	return g.save(ctx, next)
}

func (g *Graph) load(ctx context.Context, flowID string) (*models.Flow, error) {
	flow, err := g.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get flow: %w", err)
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	return flow, nil
}

func (g *Graph) save(ctx context.Context, flow *models.Flow) error {
	flow.UpdatedAt = time.Now().UTC()

	if err := g.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}

	if g.eventBus != nil {
		event := events.NewFlowUpdated(flow)

		if err := g.eventBus.Publish(ctx, flow.ID, event); err != nil {
			g.logger.ErrorContext(ctx, "Failed to publish event",
				"event_type", event.GetType(), "flow_id", flow.ID, "error", err)
		}
	}

	return nil
}
