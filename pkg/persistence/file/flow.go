package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
)

// FlowRepository handles flow-related file operations.
type FlowRepository struct {
	root string
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (r *FlowRepository) dir() string {
	return filepath.Join(r.root, "flows")
}

func (r *FlowRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

// ListFlows returns paginated and filtered flows with in-memory operations.
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

	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &persistence.FlowListResult{Flows: make([]*models.Flow, 0)}, nil
		}

		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		flow, err := r.GetByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", entry.Name(), err)
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

// GetByID returns a flow by id, or nil when the file does not exist.
func (r *FlowRepository) GetByID(_ context.Context, id string) (*models.Flow, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

// Save writes the complete flow document, graph included.
func (r *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	if err := os.WriteFile(r.path(flow.ID), data, 0o600); err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	return nil
}

// Delete removes a flow document. Deleting a missing flow returns
// ErrFlowNotFound.
func (r *FlowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(r.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.ErrFlowNotFound
		}

		return &persistence.FlowError{Op: "Delete", FlowID: id, Err: err}
	}

	return nil
}
