package flowsync

import (
	"context"
	"log/slog"

	"github.com/maqel/zapflow/pkg/eventbus"
	"github.com/maqel/zapflow/pkg/events"
	"github.com/maqel/zapflow/pkg/models"
)

// NewBusCoordinator wires a Coordinator to the event bus: outward emission
// publishes flow.updated carrying the serialized graph, and incoming
// flow.updated events for the same flow feed ApplyRemote. The coordinator
// owns the bus's flow.updated subscription; the caller still has to call
// bus.Subscribe to start delivery.
func NewBusCoordinator(bus eventbus.EventBus, logger *slog.Logger, initial *models.Flow, opts ...Option) (*Coordinator, error) {
	if initial == nil {
		return nil, ErrNoFlow
	}

	flowID := initial.ID

	coordinator := NewCoordinator(logger, initial, func(ctx context.Context, flow *models.Flow) error {
		return bus.Publish(ctx, flow.ID, events.NewFlowUpdated(flow))
	}, opts...)

	err := bus.Handle(events.FlowUpdatedEvent, func(_ context.Context, event any) error {
		updated, ok := event.(*events.FlowUpdated)
		if !ok || updated.FlowID != flowID {
			return nil
		}

		coordinator.ApplyRemote(&models.Flow{
			ID:    updated.FlowID,
			Name:  updated.Name,
			Nodes: updated.Nodes,
			Edges: updated.Edges,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return coordinator, nil
}
