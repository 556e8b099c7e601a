package models

import "fmt"

// MaxConditionBranches caps the number of branches a condition node may
// declare.
const MaxConditionBranches = 10

// ConditionBranch is one branch of a condition node. Predicate text is opaque
// here; the execution runtime interprets it. OutputID names the output that
// outbound edges reference via Edge.SourceOutput.
type ConditionBranch struct {
	ID        string `json:"id"            validate:"required"`
	Predicate string `json:"predicateText" validate:"required"`
	OutputID  string `json:"outputId"      validate:"required"`
}

// ConditionConfig holds the ordered branch list of a condition node. Branches
// are keyed by OutputID so removing one never reassigns another branch's
// outgoing edge.
type ConditionConfig struct {
	Branches []ConditionBranch `json:"branches" validate:"required,min=1,max=10,dive"`
}

func (c ConditionConfig) ConfigKind() NodeKind { return KindCondition }

func (c ConditionConfig) Validate() error {
	if len(c.Branches) == 0 {
		return fmt.Errorf("%w: condition requires at least one branch", ErrInvalidNodeConfig)
	}

	if len(c.Branches) > MaxConditionBranches {
		return fmt.Errorf("%w: condition is capped at %d branches, got %d",
			ErrInvalidNodeConfig, MaxConditionBranches, len(c.Branches))
	}

	outputs := make(map[string]bool, len(c.Branches))

	for i, branch := range c.Branches {
		if branch.ID == "" {
			return fmt.Errorf("%w: branch %d is missing an id", ErrInvalidNodeConfig, i)
		}

		if branch.Predicate == "" {
			return fmt.Errorf("%w: branch %q has empty predicate text", ErrInvalidNodeConfig, branch.ID)
		}

		if branch.OutputID == "" {
			return fmt.Errorf("%w: branch %q is missing an output id", ErrInvalidNodeConfig, branch.ID)
		}

		if outputs[branch.OutputID] {
			return fmt.Errorf("%w: duplicate branch output id %q", ErrInvalidNodeConfig, branch.OutputID)
		}

		outputs[branch.OutputID] = true
	}

	return nil
}

func (c ConditionConfig) Clone() NodeConfig {
	clone := c
	clone.Branches = make([]ConditionBranch, len(c.Branches))
	copy(clone.Branches, c.Branches)

	return clone
}

// HasOutput reports whether the config declares the given output id.
func (c ConditionConfig) HasOutput(outputID string) bool {
	for _, branch := range c.Branches {
		if branch.OutputID == outputID {
			return true
		}
	}

	return false
}

// OutputIDs returns the declared output ids in branch order.
func (c ConditionConfig) OutputIDs() []string {
	ids := make([]string, len(c.Branches))
	for i, branch := range c.Branches {
		ids[i] = branch.OutputID
	}

	return ids
}
