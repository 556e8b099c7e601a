package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/maqel/zapflow/pkg/models"
)

// ActivationRepository handles contact activation file operations. One file
// per (flow, contact) pair keeps single-record writes atomic enough for the
// admission manager, which serializes writers per key anyway.
type ActivationRepository struct {
	root string
}

// NewActivationRepository creates a new activation repository.
func NewActivationRepository(root string) *ActivationRepository {
	return &ActivationRepository{root: root}
}

func (r *ActivationRepository) dir(flowID string) string {
	return filepath.Join(r.root, "activations", flowID)
}

func (r *ActivationRepository) path(flowID, contact string) string {
	return filepath.Join(r.dir(flowID), url.PathEscape(contact)+".json")
}

// Get returns the activation for the pair, or nil when none exists.
func (r *ActivationRepository) Get(_ context.Context, flowID, contact string) (*models.ContactActivation, error) {
	data, err := os.ReadFile(r.path(flowID, contact))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read activation %s/%s: %w", flowID, contact, err)
	}

	var activation models.ContactActivation
	if err := json.Unmarshal(data, &activation); err != nil {
		return nil, fmt.Errorf("failed to decode activation %s/%s: %w", flowID, contact, err)
	}

	return &activation, nil
}

// Put writes the activation record, replacing any previous one for the pair.
func (r *ActivationRepository) Put(_ context.Context, activation *models.ContactActivation) error {
	if err := os.MkdirAll(r.dir(activation.FlowID), 0o755); err != nil {
		return fmt.Errorf("failed to create activation dir: %w", err)
	}

	data, err := json.Marshal(activation)
	if err != nil {
		return fmt.Errorf("failed to encode activation: %w", err)
	}

	path := r.path(activation.FlowID, activation.Contact)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write activation: %w", err)
	}

	return nil
}

// ClearFlow removes every activation of the flow.
func (r *ActivationRepository) ClearFlow(_ context.Context, flowID string) error {
	err := os.RemoveAll(r.dir(flowID))
	if err != nil {
		return fmt.Errorf("failed to clear activations for flow %s: %w", flowID, err)
	}

	return nil
}

// ListByFlow returns all activations of the flow, in directory order. The
// admission manager owns presentation ordering.
func (r *ActivationRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.ContactActivation, error) {
	entries, err := os.ReadDir(r.dir(flowID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.ContactActivation{}, nil
		}

		return nil, fmt.Errorf("failed to list activations for flow %s: %w", flowID, err)
	}

	activations := make([]*models.ContactActivation, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		contact, err := url.PathUnescape(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, fmt.Errorf("malformed activation file name %s: %w", entry.Name(), err)
		}

		activation, err := r.Get(ctx, flowID, contact)
		if err != nil {
			return nil, err
		}

		if activation != nil {
			activations = append(activations, activation)
		}
	}

	return activations, nil
}
