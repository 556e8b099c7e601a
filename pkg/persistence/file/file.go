// Package file provides filesystem-backed persistence, one JSON document per
// record. Suitable for development and tests.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maqel/zapflow/pkg/persistence"
)

// Persistence stores flows and activations as JSON files under a root
// directory.
type Persistence struct {
	root           string
	flowRepo       *FlowRepository
	activationRepo *ActivationRepository
}

// NewPersistence creates a file persistence layer rooted at the given
// directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{
		root:           root,
		flowRepo:       NewFlowRepository(root),
		activationRepo: NewActivationRepository(root),
	}
}

// FlowRepository returns the flow repository.
func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

// ActivationRepository returns the activation repository.
func (p *Persistence) ActivationRepository() persistence.ActivationRepository {
	return p.activationRepo
}

// HealthCheck verifies the root directory is writable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("persistence root not writable: %w", err)
	}

	probe := filepath.Join(p.root, ".healthcheck")

	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("persistence root not writable: %w", err)
	}

	return os.Remove(probe)
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
