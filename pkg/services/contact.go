package services

import (
	"context"
	"log/slog"

	"github.com/maqel/zapflow/pkg/admission"
	"github.com/maqel/zapflow/pkg/eventbus"
	"github.com/maqel/zapflow/pkg/events"
	"github.com/maqel/zapflow/pkg/models"
)

// Contact exposes the contact lifecycle operations and publishes the
// resulting events. The admission manager owns the per-key serialization;
// this layer only adds the event fan-out.
type Contact struct {
	admission *admission.Manager
	eventBus  eventbus.EventBus
	logger    *slog.Logger
}

// NewContact creates a new contact service.
func NewContact(manager *admission.Manager, eventBus eventbus.EventBus, logger *slog.Logger) *Contact {
	return &Contact{
		admission: manager,
		eventBus:  eventBus,
		logger:    logger.With("module", "contact_service"),
	}
}

// Admit brings a contact into a flow. Re-admitting an active contact returns
// the existing record and publishes nothing.
func (c *Contact) Admit(ctx context.Context, flowID, contact, entryNodeID string) (*models.ContactActivation, bool, error) {
	activation, admitted, err := c.admission.Admit(ctx, flowID, contact, entryNodeID)
	if err != nil {
		return nil, false, err
	}

	if admitted {
		c.publish(ctx, flowID, events.ContactAdmitted{
			BaseEvent:   events.NewBaseEvent(events.ContactAdmittedEvent, flowID),
			Contact:     contact,
			EntryNodeID: entryNodeID,
			EnteredAt:   activation.EnteredAt,
		})
	}

	return activation, admitted, nil
}

// Advance moves a contact to the next node, publishing an exit event when a
// terminal node is reached.
func (c *Contact) Advance(ctx context.Context, flowID, contact, nextNodeID string) (*models.ContactActivation, error) {
	activation, err := c.admission.Advance(ctx, flowID, contact, nextNodeID)
	if err != nil {
		return nil, err
	}

	if activation.Status == models.ActivationStatusExited {
		c.publish(ctx, flowID, events.ContactExited{
			BaseEvent: events.NewBaseEvent(events.ContactExitedEvent, flowID),
			Contact:   contact,
			ExitedAt:  *activation.ExitedAt,
		})
	} else {
		c.publish(ctx, flowID, events.ContactAdvanced{
			BaseEvent: events.NewBaseEvent(events.ContactAdvancedEvent, flowID),
			Contact:   contact,
			NodeID:    nextNodeID,
		})
	}

	return activation, nil
}

// ClearAll removes every activation of the flow.
func (c *Contact) ClearAll(ctx context.Context, flowID string) error {
	if err := c.admission.ClearAll(ctx, flowID); err != nil {
		return err
	}

	c.publish(ctx, flowID, events.ContactsCleared{
		BaseEvent: events.NewBaseEvent(events.ContactsClearedEvent, flowID),
	})

	return nil
}

// List returns the flow's activations, most recently entered first.
func (c *Contact) List(ctx context.Context, flowID string) ([]*models.ContactActivation, error) {
	seq, err := c.admission.List(ctx, flowID)
	if err != nil {
		return nil, err
	}

	activations := make([]*models.ContactActivation, 0)
	for activation := range seq {
		activations = append(activations, activation)
	}

	return activations, nil
}

func (c *Contact) publish(ctx context.Context, key string, event eventbus.Event) {
	if c.eventBus == nil {
		return
	}

	if err := c.eventBus.Publish(ctx, key, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
