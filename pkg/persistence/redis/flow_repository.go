package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
)

const (
	flowKeyPrefix = "zapflow:flow:"
	flowIndexKey  = "zapflow:flows"
)

// FlowRepository handles flow-related Redis operations.
type FlowRepository struct {
	client goredis.UniversalClient
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(client goredis.UniversalClient) *FlowRepository {
	return &FlowRepository{client: client}
}

func flowKey(id string) string {
	return flowKeyPrefix + id
}

// ListFlows loads every indexed flow and filters, sorts and paginates in
// memory.
func (r *FlowRepository) ListFlows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if opts.Limit > 100 {
		opts.Limit = 100
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{"created_at": true, "updated_at": true, "name": true}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	ids, err := r.client.SMembers(ctx, flowIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flow ids: %w", err)
	}

	flows := make([]*models.Flow, 0, len(ids))

	for _, id := range ids {
		flow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", id, err)
		}

		if flow == nil {
			continue
		}

		if opts.Status != nil && flow.Status != *opts.Status {
			continue
		}

		flows = append(flows, flow)
	}

	sortFlows(flows, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(flows))

	start := opts.Offset
	if start > len(flows) {
		start = len(flows)
	}

	end := start + opts.Limit
	if end > len(flows) {
		end = len(flows)
	}

	return &persistence.FlowListResult{
		Flows:       flows[start:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(flows),
	}, nil
}

func sortFlows(flows []*models.Flow, sortBy, sortOrder string) {
	sort.Slice(flows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = flows[i].UpdatedAt.Before(flows[j].UpdatedAt)
		case "name":
			less = flows[i].Name < flows[j].Name
		default:
			less = flows[i].CreatedAt.Before(flows[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID returns a flow by id, or nil when the key does not exist.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	data, err := r.client.Get(ctx, flowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, &persistence.FlowError{Op: "GetByID", FlowID: id, Err: err}
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, &persistence.FlowError{Op: "GetByID", FlowID: id, Err: err}
	}

	return &flow, nil
}

// Save writes the complete flow document and indexes its id.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, flowKey(flow.ID), data, 0)
	pipe.SAdd(ctx, flowIndexKey, flow.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	return nil
}

// Delete removes a flow document and its index entry. Deleting a missing
// flow returns ErrFlowNotFound.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, flowKey(id)).Result()
	if err != nil {
		return &persistence.FlowError{Op: "Delete", FlowID: id, Err: err}
	}

	if removed == 0 {
		return persistence.ErrFlowNotFound
	}

	if err := r.client.SRem(ctx, flowIndexKey, id).Err(); err != nil {
		return &persistence.FlowError{Op: "Delete", FlowID: id, Err: err}
	}

	return nil
}
