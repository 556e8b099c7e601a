// Package graph implements the mutation operations and structural invariants
// of a flow graph. Every operation takes a flow value and returns a new one;
// a caller never observes a half-applied mutation.
package graph

import "errors"

var (
	// ErrNodeNotFound indicates an operation referenced a node id absent
	// from the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates an operation referenced an edge id absent
	// from the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDanglingReference indicates an edge endpoint that does not exist in
	// the graph.
	ErrDanglingReference = errors.New("edge references a nonexistent node")

	// ErrDuplicateEdge indicates an edge with the same (source, target,
	// sourceOutputId) triple already exists. Not fatal; callers may ignore it.
	ErrDuplicateEdge = errors.New("edge already exists")

	// ErrDuplicateTrigger indicates a second trigger node of the same
	// external source kind. A graph holds at most one trigger per source.
	ErrDuplicateTrigger = errors.New("trigger for this source already exists")

	// ErrInvalidEdge indicates an edge that violates a structural rule:
	// leaving a terminal node, entering a trigger node, or an output
	// reference that does not match the source node's declared outputs.
	ErrInvalidEdge = errors.New("invalid edge")
)

// IsNodeNotFound reports whether err means a missing node.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsDuplicateEdge reports whether err means the edge already exists.
func IsDuplicateEdge(err error) bool {
	return errors.Is(err, ErrDuplicateEdge)
}
