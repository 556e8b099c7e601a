// Package persistence provides the data storage abstraction for flows and
// contact activations.
package persistence

import (
	"context"

	"github.com/maqel/zapflow/pkg/models"
)

// Persistence bundles the repositories of one storage backend.
type Persistence interface {
	FlowRepository() FlowRepository
	ActivationRepository() ActivationRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListFlowsOptions controls filtering, sorting and pagination of flow
// listings.
type ListFlowsOptions struct {
	Limit     int
	Offset    int
	Status    *models.FlowStatus
	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc
}

// FlowListResult is one page of a flow listing.
type FlowListResult struct {
	Flows       []*models.Flow `json:"flows"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

// FlowRepository stores flow definitions, graph included.
type FlowRepository interface {
	ListFlows(ctx context.Context, opts ListFlowsOptions) (*FlowListResult, error)
	// GetByID returns nil, nil when no flow carries the id.
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error
}

// ActivationRepository stores contact activations. Serialization of
// concurrent admissions per (flow, contact) key is the admission manager's
// job; repositories only need atomic single-record reads and writes.
type ActivationRepository interface {
	// Get returns nil, nil when the contact has no record in the flow.
	Get(ctx context.Context, flowID, contact string) (*models.ContactActivation, error)
	Put(ctx context.Context, activation *models.ContactActivation) error
	// ClearFlow removes every activation of the flow, regardless of state.
	ClearFlow(ctx context.Context, flowID string) error
	ListByFlow(ctx context.Context, flowID string) ([]*models.ContactActivation, error)
}
