// Package events defines event types and structures for flow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/maqel/zapflow/pkg/models"
)

type EventType string

// Topic carries every flow lifecycle event.
const Topic = "zapflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Flow lifecycle events.
	FlowCreatedEvent   EventType = "flow.created"
	FlowUpdatedEvent   EventType = "flow.updated"
	FlowDeletedEvent   EventType = "flow.deleted"
	FlowActivatedEvent EventType = "flow.activated"

	// Contact lifecycle events.
	ContactAdmittedEvent EventType = "contact.admitted"
	ContactAdvancedEvent EventType = "contact.advanced"
	ContactExitedEvent   EventType = "contact.exited"
	ContactsClearedEvent EventType = "contacts.cleared"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type FlowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e FlowCreated) GetType() EventType {
	return FlowCreatedEvent
}

// FlowUpdated signals that the persisted graph changed. It carries the full
// serialized graph so subscribers can reconcile without loading the document;
// NodeCount and EdgeCount let lightweight consumers display activity without
// touching the payload.
type FlowUpdated struct {
	BaseEvent

	Name      string         `json:"name"`
	NodeCount int            `json:"node_count"`
	EdgeCount int            `json:"edge_count"`
	Nodes     []*models.Node `json:"nodes"`
	Edges     []*models.Edge `json:"edges"`
}

func (e FlowUpdated) GetType() EventType {
	return FlowUpdatedEvent
}

// NewFlowUpdated builds a FlowUpdated event from the flow's current state.
func NewFlowUpdated(flow *models.Flow) FlowUpdated {
	return FlowUpdated{
		BaseEvent: NewBaseEvent(FlowUpdatedEvent, flow.ID),
		Name:      flow.Name,
		NodeCount: len(flow.Nodes),
		EdgeCount: len(flow.Edges),
		Nodes:     flow.Nodes,
		Edges:     flow.Edges,
	}
}

type FlowDeleted struct {
	BaseEvent
}

func (e FlowDeleted) GetType() EventType {
	return FlowDeletedEvent
}

// FlowActivated is emitted only after the graph passed validation.
type FlowActivated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e FlowActivated) GetType() EventType {
	return FlowActivatedEvent
}

type ContactAdmitted struct {
	BaseEvent

	Contact     string    `json:"contact"`
	EntryNodeID string    `json:"entry_node_id"`
	EnteredAt   time.Time `json:"entered_at"`
}

func (e ContactAdmitted) GetType() EventType {
	return ContactAdmittedEvent
}

type ContactAdvanced struct {
	BaseEvent

	Contact string `json:"contact"`
	NodeID  string `json:"node_id"`
}

func (e ContactAdvanced) GetType() EventType {
	return ContactAdvancedEvent
}

type ContactExited struct {
	BaseEvent

	Contact  string    `json:"contact"`
	ExitedAt time.Time `json:"exited_at"`
}

func (e ContactExited) GetType() EventType {
	return ContactExitedEvent
}

type ContactsCleared struct {
	BaseEvent
}

func (e ContactsCleared) GetType() EventType {
	return ContactsClearedEvent
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}
