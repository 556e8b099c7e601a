package models

// Edge is a directed connection between two nodes. SourceOutput disambiguates
// which of the source node's outputs the edge leaves from; it is set exactly
// when the source is a condition node and names one of its branch outputs.
type Edge struct {
	ID           string  `json:"id"     validate:"required"`
	Source       string  `json:"source" validate:"required"`
	Target       string  `json:"target" validate:"required"`
	SourceOutput *string `json:"sourceOutputId,omitempty"`
}

// SameRoute reports whether both edges connect the same (source, target,
// sourceOutputId) triple. Edge IDs are not compared.
func (e *Edge) SameRoute(other *Edge) bool {
	if e.Source != other.Source || e.Target != other.Target {
		return false
	}

	if e.SourceOutput == nil || other.SourceOutput == nil {
		return e.SourceOutput == other.SourceOutput
	}

	return *e.SourceOutput == *other.SourceOutput
}
