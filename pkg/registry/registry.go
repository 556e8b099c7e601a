// Package registry exposes the closed catalog of node kinds, with the JSON
// schema an editor uses to render and pre-validate each kind's config form.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/maqel/zapflow/pkg/models"
)

type Registry struct {
	logger *slog.Logger
	kinds  map[models.NodeKind]*models.RegisteredKind
}

// NewRegistry builds the catalog with every node kind registered.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		logger: logger.With("module", "registry"),
		kinds:  make(map[models.NodeKind]*models.RegisteredKind),
	}

	for _, kind := range allRegisteredKinds() {
		r.kinds[kind.Kind] = kind
	}

	return r
}

// Kinds returns every registered kind, sorted by wire value.
func (r *Registry) Kinds() []*models.RegisteredKind {
	kinds := make([]*models.RegisteredKind, 0, len(r.kinds))
	for _, kind := range r.kinds {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i].Kind < kinds[j].Kind
	})

	return kinds
}

// Get returns the registered kind, or nil when the kind is unknown.
func (r *Registry) Get(kind models.NodeKind) *models.RegisteredKind {
	return r.kinds[kind]
}

// ValidateConfig checks a raw config document against the kind's JSON schema.
// Schema findings are joined into one error.
func (r *Registry) ValidateConfig(kind models.NodeKind, raw json.RawMessage) error {
	registered, ok := r.kinds[kind]
	if !ok {
		return fmt.Errorf("unknown node kind: %s", kind)
	}

	schemaLoader := gojsonschema.NewGoLoader(registered.Schema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for kind %s: %w", kind, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid config for kind %s: %s", kind, strings.Join(details, "; "))
	}

	return nil
}
