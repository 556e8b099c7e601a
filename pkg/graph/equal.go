package graph

import (
	"reflect"

	"github.com/maqel/zapflow/pkg/models"
)

// Equal reports whether two flows carry structurally equal graphs: the same
// node ids with the same kinds, positions and configs, and the same edge
// routes, independent of container order. Flow metadata (name, status,
// timestamps) is not part of graph structure and is ignored.
func Equal(a, b *models.Flow) bool {
	if a == nil || b == nil {
		return a == b
	}

	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		return false
	}

	nodes := make(map[string]*models.Node, len(b.Nodes))
	for _, node := range b.Nodes {
		nodes[node.ID] = node
	}

	for _, node := range a.Nodes {
		other, ok := nodes[node.ID]
		if !ok {
			return false
		}

		if node.Kind != other.Kind || node.Position != other.Position {
			return false
		}

		// Configs are compared by value, never by reference.
		if !reflect.DeepEqual(node.Config, other.Config) {
			return false
		}
	}

	edges := make(map[string]*models.Edge, len(b.Edges))
	for _, edge := range b.Edges {
		edges[edge.ID] = edge
	}

	for _, edge := range a.Edges {
		other, ok := edges[edge.ID]
		if !ok || !edge.SameRoute(other) {
			return false
		}
	}

	return true
}
