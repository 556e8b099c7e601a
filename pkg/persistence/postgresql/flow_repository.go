package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
)

// graphDocument is the JSONB shape of the graph column.
type graphDocument struct {
	Nodes []*models.Node `json:"nodes"`
	Edges []*models.Edge `json:"edges"`
}

// FlowRepository handles flow-related database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

var allowedFlowSorts = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
}

// ListFlows returns paginated flows, optionally filtered by status.
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

	column, ok := allowedFlowSorts[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	direction := "DESC"
	if opts.SortOrder == "asc" {
		direction = "ASC"
	}

	where := "deleted_at IS NULL"
	args := []any{}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var totalCount int64

	countQuery := "SELECT COUNT(*) FROM flows WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count flows: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`
		SELECT id, name, status, graph, created_at, updated_at, deleted_at
		FROM flows
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, column, direction, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0, opts.Limit)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return &persistence.FlowListResult{
		Flows:       flows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(flows)) < totalCount,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow      models.Flow
		graphData []byte
	)

	err := row.Scan(&flow.ID, &flow.Name, &flow.Status, &graphData,
		&flow.CreatedAt, &flow.UpdatedAt, &flow.DeletedAt)
	if err != nil {
		return nil, err
	}

	var document graphDocument
	if err := json.Unmarshal(graphData, &document); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}

	flow.Nodes = document.Nodes
	flow.Edges = document.Edges

	if flow.Nodes == nil {
		flow.Nodes = []*models.Node{}
	}

	if flow.Edges == nil {
		flow.Edges = []*models.Edge{}
	}

	return &flow, nil
}

// GetByID returns a flow by id, or nil when none exists.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `
		SELECT id, name, status, graph, created_at, updated_at, deleted_at
		FROM flows
		WHERE id = $1 AND deleted_at IS NULL
	`

	flow, err := scanFlow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, &persistence.FlowError{Op: "GetByID", FlowID: id, Err: err}
	}

	return flow, nil
}

// Save upserts the complete flow row, graph document included.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	document, err := json.Marshal(graphDocument{Nodes: flow.Nodes, Edges: flow.Edges})
	if err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	query := `
		INSERT INTO flows (id, name, status, graph, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			graph = EXCLUDED.graph,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		flow.ID, flow.Name, flow.Status, document, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return &persistence.FlowError{Op: "Save", FlowID: flow.ID, Err: err}
	}

	return nil
}

// Delete soft deletes a flow by setting deleted_at.
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	query := "UPDATE flows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL"

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return &persistence.FlowError{Op: "Delete", FlowID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.FlowError{Op: "Delete", FlowID: id, Err: err}
	}

	if affected == 0 {
		return persistence.ErrFlowNotFound
	}

	return nil
}
