package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maqel/zapflow/pkg/models"
)

// ActivationRepository handles contact activation database operations. The
// (flow_id, contact) primary key backs the one-active-record-per-pair
// invariant at the storage level.
type ActivationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewActivationRepository creates a new activation repository.
func NewActivationRepository(db *sql.DB, logger *slog.Logger) *ActivationRepository {
	return &ActivationRepository{db: db, logger: logger}
}

// Get returns the activation for the pair, or nil when none exists.
func (r *ActivationRepository) Get(ctx context.Context, flowID, contact string) (*models.ContactActivation, error) {
	query := `
		SELECT flow_id, contact, status, current_node_id, entered_at, exited_at
		FROM contact_activations
		WHERE flow_id = $1 AND contact = $2
	`

	var activation models.ContactActivation

	err := r.db.QueryRowContext(ctx, query, flowID, contact).Scan(
		&activation.FlowID, &activation.Contact, &activation.Status,
		&activation.CurrentNodeID, &activation.EnteredAt, &activation.ExitedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query activation %s/%s: %w", flowID, contact, err)
	}

	return &activation, nil
}

// Put upserts the activation record for the pair.
func (r *ActivationRepository) Put(ctx context.Context, activation *models.ContactActivation) error {
	query := `
		INSERT INTO contact_activations
			(flow_id, contact, status, current_node_id, entered_at, exited_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (flow_id, contact) DO UPDATE SET
			status = EXCLUDED.status,
			current_node_id = EXCLUDED.current_node_id,
			entered_at = EXCLUDED.entered_at,
			exited_at = EXCLUDED.exited_at
	`

	_, err := r.db.ExecContext(ctx, query,
		activation.FlowID, activation.Contact, activation.Status,
		activation.CurrentNodeID, activation.EnteredAt, activation.ExitedAt)
	if err != nil {
		return fmt.Errorf("failed to save activation %s/%s: %w",
			activation.FlowID, activation.Contact, err)
	}

	return nil
}

// ClearFlow removes every activation of the flow.
func (r *ActivationRepository) ClearFlow(ctx context.Context, flowID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM contact_activations WHERE flow_id = $1", flowID)
	if err != nil {
		return fmt.Errorf("failed to clear activations for flow %s: %w", flowID, err)
	}

	return nil
}

// ListByFlow returns the flow's activations, most recently entered first.
func (r *ActivationRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.ContactActivation, error) {
	query := `
		SELECT flow_id, contact, status, current_node_id, entered_at, exited_at
		FROM contact_activations
		WHERE flow_id = $1
		ORDER BY entered_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activations for flow %s: %w", flowID, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	activations := make([]*models.ContactActivation, 0)

	for rows.Next() {
		var activation models.ContactActivation

		err := rows.Scan(&activation.FlowID, &activation.Contact, &activation.Status,
			&activation.CurrentNodeID, &activation.EnteredAt, &activation.ExitedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}

		activations = append(activations, &activation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activations: %w", err)
	}

	return activations, nil
}
