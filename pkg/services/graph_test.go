package services

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maqel/zapflow/pkg/graph"
	"github.com/maqel/zapflow/pkg/models"
	"github.com/maqel/zapflow/pkg/persistence"
	"github.com/maqel/zapflow/pkg/persistence/file"
)

func newGraphService(t *testing.T) (*Graph, *Flow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewGraph(p, nil, slog.Default()), NewFlow(p, nil, slog.Default()), p
}

func TestGraph_AddNodePersists(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	node, err := graphService.AddNode(t.Context(), flow.ID, models.KindWhatsAppTrigger,
		models.Position{X: 10, Y: 20}, json.RawMessage(`{"instanceId": "instance-1"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)

	loaded, err := flowService.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.KindWhatsAppTrigger, loaded.Nodes[0].Kind)
}

func TestGraph_AddNodeRejectsMismatchedConfig(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	_, err = graphService.AddNode(t.Context(), flow.ID, models.KindDelay,
		models.Position{}, json.RawMessage(`{"instanceId": "instance-1"}`))
	assert.ErrorIs(t, err, models.ErrInvalidNodeConfig)

	loaded, err := flowService.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Nodes, "rejected mutation must not be persisted")
}

func TestGraph_SecondTriggerOfSameKindRejected(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	_, err = graphService.AddNode(t.Context(), flow.ID, models.KindWhatsAppTrigger,
		models.Position{}, json.RawMessage(`{"instanceId": "a"}`))
	require.NoError(t, err)

	_, err = graphService.AddNode(t.Context(), flow.ID, models.KindWhatsAppTrigger,
		models.Position{}, json.RawMessage(`{"instanceId": "b"}`))
	assert.ErrorIs(t, err, graph.ErrDuplicateTrigger)
}

func TestGraph_EdgeLifecycle(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	trigger, err := graphService.AddNode(t.Context(), flow.ID, models.KindWhatsAppTrigger,
		models.Position{}, json.RawMessage(`{"instanceId": "a"}`))
	require.NoError(t, err)

	response, err := graphService.AddNode(t.Context(), flow.ID, models.KindResponse,
		models.Position{}, json.RawMessage(`{"responseType": "text", "content": "hi"}`))
	require.NoError(t, err)

	edge, err := graphService.AddEdge(t.Context(), flow.ID, trigger.ID, response.ID, nil)
	require.NoError(t, err)

	// Same route again is rejected.
	_, err = graphService.AddEdge(t.Context(), flow.ID, trigger.ID, response.ID, nil)
	assert.ErrorIs(t, err, graph.ErrDuplicateEdge)

	require.NoError(t, graphService.RemoveEdge(t.Context(), flow.ID, edge.ID))

	loaded, err := flowService.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Edges)
}

func TestGraph_RemoveNodeCascadesEdges(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	trigger, err := graphService.AddNode(t.Context(), flow.ID, models.KindWhatsAppTrigger,
		models.Position{}, json.RawMessage(`{"instanceId": "a"}`))
	require.NoError(t, err)

	response, err := graphService.AddNode(t.Context(), flow.ID, models.KindResponse,
		models.Position{}, json.RawMessage(`{"responseType": "text", "content": "hi"}`))
	require.NoError(t, err)

	_, err = graphService.AddEdge(t.Context(), flow.ID, trigger.ID, response.ID, nil)
	require.NoError(t, err)

	require.NoError(t, graphService.RemoveNode(t.Context(), flow.ID, response.ID))

	loaded, err := flowService.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
	assert.Empty(t, loaded.Edges)

	// Removing it again is a no-op.
	require.NoError(t, graphService.RemoveNode(t.Context(), flow.ID, response.ID))
}

func TestGraph_UpdateNodeConfigSwitchesResponseType(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	node, err := graphService.AddNode(t.Context(), flow.ID, models.KindResponse,
		models.Position{},
		json.RawMessage(`{"responseType": "image_caption", "mediaUrl": "https://cdn.example/pic.png", "caption": "look"}`))
	require.NoError(t, err)

	updated, err := graphService.UpdateNodeConfig(t.Context(), flow.ID, node.ID,
		json.RawMessage(`{"responseType": "text", "content": "plain now"}`))
	require.NoError(t, err)

	config, ok := updated.Config.(models.ResponseConfig)
	require.True(t, ok)
	assert.Equal(t, models.ResponseText, config.Type)
	assert.Equal(t, "plain now", config.Content)
	assert.Empty(t, config.MediaURL, "stale media fields must be discarded on type switch")
	assert.Empty(t, config.Caption)
}

func TestGraph_MoveNode(t *testing.T) {
	graphService, flowService, _ := newGraphService(t)

	flow, err := flowService.Create(t.Context(), "Graph Test")
	require.NoError(t, err)

	node, err := graphService.AddNode(t.Context(), flow.ID, models.KindEnd,
		models.Position{X: 1, Y: 1}, json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, graphService.MoveNode(t.Context(), flow.ID, node.ID,
		models.Position{X: 300, Y: 400}))

	loaded, err := flowService.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Position{X: 300, Y: 400}, loaded.Nodes[0].Position)
}

func TestGraph_MutationOnMissingFlow(t *testing.T) {
	graphService, _, _ := newGraphService(t)

	_, err := graphService.AddNode(t.Context(), "missing", models.KindEnd,
		models.Position{}, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrFlowNotFound)
}
