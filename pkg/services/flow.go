package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maqel/zapflow/pkg/eventbus"
	"github.com/maqel/zapflow/pkg/events"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
	"github.com/maqel/zapflow/pkg/validation"
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

type Flow struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

// NewFlow creates a new flow service.
func NewFlow(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Flow {
	return &Flow{
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger.With("module", "flow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListFlowsRequest contains options for listing flows.
type ListFlowsRequest struct {
	Limit  int `validate:"min=1,max=100"`
	Offset int `validate:"min=0"`

	Status *models.FlowStatus

	SortBy    string `validate:"oneof=created_at updated_at name"`
	SortOrder string `validate:"oneof=asc desc"`
}

// ListFlowsResponse contains the result of listing flows.
type ListFlowsResponse struct {
	Flows       []*models.Flow `json:"flows"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

// ListFlows retrieves flows with filtering, sorting and pagination.
func (f *Flow) ListFlows(ctx context.Context, req ListFlowsRequest) (*ListFlowsResponse, error) {
	if err := f.validateListFlowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	opts := persistence.ListFlowsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := f.persistence.FlowRepository().ListFlows(ctx, opts)
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return &ListFlowsResponse{
		Flows:       result.Flows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (f *Flow) validateListFlowsRequest(req *ListFlowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}
	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListFlowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.FlowStatus{
			models.FlowStatusDraft,
			models.FlowStatusActive,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError(
				"validateListFlowsRequest",
				"INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}
	}

	return nil
}

// FetchByID retrieves a flow by its ID.
func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	return flow, nil
}

// Create adds a new empty draft flow.
func (f *Flow) Create(ctx context.Context, name string) (*models.Flow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrFlowNameRequired
	}

	now := time.Now().UTC()
	flow := &models.Flow{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    models.FlowStatusDraft,
		Nodes:     []*models.Node{},
		Edges:     []*models.Edge{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	f.publish(ctx, flow.ID, events.FlowCreated{
		BaseEvent: events.NewBaseEvent(events.FlowCreatedEvent, flow.ID),
		Name:      flow.Name,
	})

	return flow, nil
}

// Rename changes the flow's display name.
func (f *Flow) Rename(ctx context.Context, flowID, name string) (*models.Flow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrFlowNameRequired
	}

	flow, err := f.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	flow.Name = name
	flow.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to rename flow: %w", err)
	}

	f.publish(ctx, flow.ID, events.NewFlowUpdated(flow))

	return flow, nil
}

// Delete removes a flow by its ID.
func (f *Flow) Delete(ctx context.Context, flowID string) error {
	existing, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrFlowNotFound
	}

	if err := f.persistence.FlowRepository().Delete(ctx, flowID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	f.publish(ctx, flowID, events.FlowDeleted{
		BaseEvent: events.NewBaseEvent(events.FlowDeletedEvent, flowID),
	})

	return nil
}

// Validate runs the graph validator without changing anything.
func (f *Flow) Validate(ctx context.Context, flowID string) (*validation.Result, error) {
	flow, err := f.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	result := validation.Validate(flow)

	return &result, nil
}

// Activate switches a flow to active. A flow may be saved with validation
// findings but never activated with fatal ones; the findings are returned so
// callers can show what blocked activation.
func (f *Flow) Activate(ctx context.Context, flowID string) (*models.Flow, *validation.Result, error) {
	flow, err := f.FetchByID(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}

	result := validation.Validate(flow)
	if !result.Valid() {
		return nil, &result, ErrFlowNotValid
	}

	flow.Status = models.FlowStatusActive
	flow.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, nil, fmt.Errorf("failed to activate flow: %w", err)
	}

	f.publish(ctx, flow.ID, events.FlowActivated{
		BaseEvent: events.NewBaseEvent(events.FlowActivatedEvent, flow.ID),
		Name:      flow.Name,
	})

	return flow, &result, nil
}

// publish sends an event. The write already succeeded, so transport failures
// are logged instead of surfaced.
func (f *Flow) publish(ctx context.Context, key string, event eventbus.Event) {
	if f.eventBus == nil {
		return
	}

	if err := f.eventBus.Publish(ctx, key, event); err != nil {
		f.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
