package file

import (
	"fmt"
	"testing"
	"time"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlow(id, name string, createdAt time.Time) *models.Flow {
	return &models.Flow{
		ID:     id,
		Name:   name,
		Status: models.FlowStatusDraft,
		Nodes: []*models.Node{
			{ID: "t1", Kind: models.KindWhatsAppTrigger,
				Config: models.WhatsAppTriggerConfig{InstanceID: "instance-1"}},
		},
		Edges:     []*models.Edge{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestFlowRepository_SaveAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	flow := testFlow("flow-1", "Welcome", time.Now().UTC())
	require.NoError(t, repo.Save(t.Context(), flow))

	loaded, err := repo.GetByID(t.Context(), "flow-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, flow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.KindWhatsAppTrigger, loaded.Nodes[0].Kind)
	assert.Equal(t,
		models.WhatsAppTriggerConfig{InstanceID: "instance-1"},
		loaded.Nodes[0].Config)
}

func TestFlowRepository_GetMissingReturnsNil(t *testing.T) {
	p := NewPersistence(t.TempDir())

	flow, err := p.FlowRepository().GetByID(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, flow)
}

func TestFlowRepository_DeleteMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.FlowRepository().Delete(t.Context(), "missing")
	assert.ErrorIs(t, err, persistence.ErrFlowNotFound)
}

func TestFlowRepository_ListSortsAndPaginates(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		require.NoError(t, repo.Save(t.Context(),
			testFlow(name, name, base.Add(time.Duration(i)*time.Hour))))
	}

	result, err := repo.ListFlows(t.Context(), persistence.ListFlowsOptions{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalCount)
	assert.True(t, result.HasNextPage)
	require.Len(t, result.Flows, 2)
	assert.Equal(t, "Gamma", result.Flows[0].Name, "default sort is created_at desc")

	result, err = repo.ListFlows(t.Context(), persistence.ListFlowsOptions{
		Limit: 10, SortBy: "name", SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", result.Flows[0].Name)

	_, err = repo.ListFlows(t.Context(), persistence.ListFlowsOptions{SortBy: "owner"})
	assert.ErrorIs(t, err, persistence.ErrInvalidSortField)
}

func TestFlowRepository_ListClampsOversizedLimit(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.FlowRepository()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 25 {
		id := fmt.Sprintf("flow-%02d", i)
		require.NoError(t, repo.Save(t.Context(),
			testFlow(id, id, base.Add(time.Duration(i)*time.Minute))))
	}

	// An oversized limit is clamped to 100, not reset to the default page
	// size of 20.
	result, err := repo.ListFlows(t.Context(), persistence.ListFlowsOptions{Limit: 500})
	require.NoError(t, err)

	assert.Len(t, result.Flows, 25)
	assert.False(t, result.HasNextPage)
}

func TestActivationRepository_RoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ActivationRepository()

	nodeID := "trigger-1"
	activation := &models.ContactActivation{
		FlowID:        "flow-1",
		Contact:       "5511999999999",
		Status:        models.ActivationStatusActive,
		CurrentNodeID: &nodeID,
		EnteredAt:     time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, repo.Put(t.Context(), activation))

	loaded, err := repo.Get(t.Context(), "flow-1", "5511999999999")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, activation.Status, loaded.Status)
	assert.Equal(t, nodeID, *loaded.CurrentNodeID)
	assert.True(t, activation.EnteredAt.Equal(loaded.EnteredAt))
}

func TestActivationRepository_GetMissingReturnsNil(t *testing.T) {
	p := NewPersistence(t.TempDir())

	activation, err := p.ActivationRepository().Get(t.Context(), "flow-1", "5511999999999")
	require.NoError(t, err)
	assert.Nil(t, activation)
}

func TestActivationRepository_ClearFlow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ActivationRepository()

	for _, contact := range []string{"5511999999999", "5511888888888"} {
		require.NoError(t, repo.Put(t.Context(), &models.ContactActivation{
			FlowID:    "flow-1",
			Contact:   contact,
			Status:    models.ActivationStatusActive,
			EnteredAt: time.Now().UTC(),
		}))
	}

	require.NoError(t, repo.ClearFlow(t.Context(), "flow-1"))

	activations, err := repo.ListByFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Empty(t, activations)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())

	assert.NoError(t, p.HealthCheck(t.Context()))
	assert.NoError(t, p.Close(t.Context()))
}
