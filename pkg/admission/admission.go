// Package admission implements the per-contact state machine that governs how
// a contact enters, moves through and leaves a flow. Admission is idempotent:
// re-admitting an active contact returns the existing record instead of
// starting a second concurrent run.
package admission

import (
	"context"
	"hash/fnv"
	"iter"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/otelhelper"
	"github.com/maqel/zapflow/pkg/persistence"
)

const lockStripes = 64

// Manager serializes admissions per (flow, contact) key while keeping
// distinct keys fully parallel. Keys are spread over a fixed set of striped
// mutexes, so two near-simultaneous admissions for the same contact never
// both observe an empty record.
type Manager struct {
	flows       persistence.FlowRepository
	activations persistence.ActivationRepository
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	stripes     [lockStripes]sync.Mutex
}

// NewManager creates an admission manager on top of the given repositories.
func NewManager(flows persistence.FlowRepository, activations persistence.ActivationRepository, logger *slog.Logger, tracer trace.Tracer) *Manager {
	return &Manager{
		flows:       flows,
		activations: activations,
		logger:      logger.With("module", "admission"),
		tracer:      tracer,
		now:         time.Now,
	}
}

func (m *Manager) lockFor(flowID, contact string) *sync.Mutex {
	hasher := fnv.New32a()
	hasher.Write([]byte(flowID))
	hasher.Write([]byte{0})
	hasher.Write([]byte(contact))

	return &m.stripes[hasher.Sum32()%lockStripes]
}

// Admit brings the contact into the flow at the given entry node. If the
// contact is already active the existing activation is returned unchanged
// and admitted is false; an exited or absent record is reset to a fresh
// active one.
func (m *Manager) Admit(ctx context.Context, flowID, contact, entryNodeID string) (activation *models.ContactActivation, admitted bool, err error) {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "admission.admit",
		attribute.String(otelhelper.FlowIDKey, flowID),
		attribute.String(otelhelper.ContactKey, contact),
		attribute.String(otelhelper.NodeIDKey, entryNodeID))
	defer span.End()

	flow, err := m.flows.GetByID(ctx, flowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, false, &Error{Op: "Admit", FlowID: flowID, Contact: contact, Err: err}
	}

	if flow == nil {
		return nil, false, &Error{Op: "Admit", FlowID: flowID, Contact: contact, Err: ErrFlowNotFound}
	}

	if flow.NodeByID(entryNodeID) == nil {
		return nil, false, &Error{Op: "Admit", FlowID: flowID, Contact: contact, Err: ErrUnknownNode}
	}

	lock := m.lockFor(flowID, contact)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.activations.Get(ctx, flowID, contact)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, false, &Error{Op: "Admit", FlowID: flowID, Contact: contact, Err: err}
	}

	if existing != nil && existing.IsActive() {
		m.logger.DebugContext(ctx, "Contact already active, admission is a no-op",
			"flow_id", flowID, "contact", contact)

		return existing, false, nil
	}

	entryNode := entryNodeID
	activation = &models.ContactActivation{
		FlowID:        flowID,
		Contact:       contact,
		Status:        models.ActivationStatusActive,
		CurrentNodeID: &entryNode,
		EnteredAt:     m.now(),
	}

	if err := m.activations.Put(ctx, activation); err != nil {
		otelhelper.SetError(span, err)

		return nil, false, &Error{Op: "Admit", FlowID: flowID, Contact: contact, Err: err}
	}

	m.logger.InfoContext(ctx, "Contact admitted into flow",
		"flow_id", flowID, "contact", contact, "entry_node", entryNodeID)

	return activation, true, nil
}

// Advance moves an active contact to the next node. Reaching a terminal node
// transitions the contact to exited and clears its position.
func (m *Manager) Advance(ctx context.Context, flowID, contact, nextNodeID string) (*models.ContactActivation, error) {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "admission.advance",
		attribute.String(otelhelper.FlowIDKey, flowID),
		attribute.String(otelhelper.ContactKey, contact),
		attribute.String(otelhelper.NodeIDKey, nextNodeID))
	defer span.End()

	flow, err := m.flows.GetByID(ctx, flowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: err}
	}

	if flow == nil {
		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: ErrFlowNotFound}
	}

	nextNode := flow.NodeByID(nextNodeID)
	if nextNode == nil {
		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: ErrUnknownNode}
	}

	lock := m.lockFor(flowID, contact)
	lock.Lock()
	defer lock.Unlock()

	activation, err := m.activations.Get(ctx, flowID, contact)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: err}
	}

	if activation == nil || !activation.IsActive() {
		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: ErrNotActive}
	}

	if nextNode.Kind.IsTerminal() {
		exitedAt := m.now()
		activation.Status = models.ActivationStatusExited
		activation.CurrentNodeID = nil
		activation.ExitedAt = &exitedAt

		m.logger.InfoContext(ctx, "Contact reached terminal node and exited flow",
			"flow_id", flowID, "contact", contact, "node_id", nextNodeID)
	} else {
		nodeID := nextNodeID
		activation.CurrentNodeID = &nodeID
	}

	if err := m.activations.Put(ctx, activation); err != nil {
		otelhelper.SetError(span, err)

		return nil, &Error{Op: "Advance", FlowID: flowID, Contact: contact, Err: err}
	}

	return activation, nil
}

// ClearAll removes every activation of the flow, regardless of state. This
// is a destructive operator-triggered bulk operation.
func (m *Manager) ClearAll(ctx context.Context, flowID string) error {
	ctx, span := otelhelper.StartSpan(ctx, m.tracer, "admission.clear_all",
		attribute.String(otelhelper.FlowIDKey, flowID))
	defer span.End()

	if err := m.activations.ClearFlow(ctx, flowID); err != nil {
		otelhelper.SetError(span, err)

		return &Error{Op: "ClearAll", FlowID: flowID, Err: err}
	}

	m.logger.InfoContext(ctx, "Cleared all activations for flow", "flow_id", flowID)

	return nil
}

// List returns a restartable sequence of the flow's activations, most
// recently entered first. Ranging over it again replays the same snapshot.
func (m *Manager) List(ctx context.Context, flowID string) (iter.Seq[*models.ContactActivation], error) {
	activations, err := m.activations.ListByFlow(ctx, flowID)
	if err != nil {
		return nil, &Error{Op: "List", FlowID: flowID, Err: err}
	}

	sort.SliceStable(activations, func(i, j int) bool {
		return activations[i].EnteredAt.After(activations[j].EnteredAt)
	})

	return func(yield func(*models.ContactActivation) bool) {
		for _, activation := range activations {
			if !yield(activation) {
				return
			}
		}
	}, nil
}
