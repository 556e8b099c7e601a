// Package validation checks a flow graph against the rules that gate its
// activation. Validation is pure: it never mutates the flow and has no side
// effects.
package validation

import (
	"fmt"

	"github.com/maqel/zapflow/pkg/models"
)

// Rule identifiers, in evaluation order.
const (
	RuleTriggerRequired   = "trigger_required"
	RuleOrphanNode        = "orphan_node"
	RuleBranchFanOut      = "branch_fan_out"
	RuleUnproductiveCycle = "unproductive_cycle"
)

// Severity of a finding. Only error-severity findings block activation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result entry.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	TargetID string   `json:"target_id,omitempty"` // node or edge id, empty for graph-level findings
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result aggregates the findings of one validation run.
type Result struct {
	Findings []Finding `json:"findings"`
}

// Valid reports whether the flow may be activated: no error-severity
// findings. Warnings do not block activation.
func (r Result) Valid() bool {
	for _, finding := range r.Findings {
		if finding.Severity == SeverityError {
			return false
		}
	}

	return true
}

// Validate runs the rules in order. The first rule that produces a fatal
// finding wins: later rules are not evaluated, warnings gathered so far are
// kept in the result.
func Validate(flow *models.Flow) Result {
	var result Result

	if fatal := checkTriggerExists(flow, &result); fatal {
		return result
	}

	// Orphan nodes are allowed to exist mid-edit; they only warn.
	checkReachability(flow, &result)

	if fatal := checkBranchFanOut(flow, &result); fatal {
		return result
	}

	checkUnproductiveCycles(flow, &result)

	return result
}

func checkTriggerExists(flow *models.Flow, result *Result) bool {
	if len(flow.TriggerNodes()) > 0 {
		return false
	}

	result.Findings = append(result.Findings, Finding{
		RuleID:   RuleTriggerRequired,
		Message:  "flow has no trigger node and can never start",
		Severity: SeverityError,
	})

	return true
}

func checkReachability(flow *models.Flow, result *Result) {
	reachable := make(map[string]bool, len(flow.Nodes))

	queue := make([]string, 0, len(flow.Nodes))
	for _, trigger := range flow.TriggerNodes() {
		reachable[trigger.ID] = true
		queue = append(queue, trigger.ID)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range flow.OutgoingEdges(current) {
			if !reachable[edge.Target] {
				reachable[edge.Target] = true
				queue = append(queue, edge.Target)
			}
		}
	}

	for _, node := range flow.Nodes {
		if !reachable[node.ID] {
			result.Findings = append(result.Findings, Finding{
				RuleID:   RuleOrphanNode,
				TargetID: node.ID,
				Message:  fmt.Sprintf("node %s is unreachable from any trigger", node.ID),
				Severity: SeverityWarning,
			})
		}
	}
}

func checkBranchFanOut(flow *models.Flow, result *Result) bool {
	fatal := false

	for _, node := range flow.Nodes {
		if node.Kind != models.KindCondition {
			continue
		}

		perOutput := make(map[string]int)

		for _, edge := range flow.OutgoingEdges(node.ID) {
			if edge.SourceOutput == nil {
				result.Findings = append(result.Findings, Finding{
					RuleID:   RuleBranchFanOut,
					TargetID: edge.ID,
					Message:  fmt.Sprintf("edge %s leaves condition %s without an output id", edge.ID, node.ID),
					Severity: SeverityError,
				})
				fatal = true

				continue
			}

			perOutput[*edge.SourceOutput]++
		}

		for output, count := range perOutput {
			if count > 1 {
				result.Findings = append(result.Findings, Finding{
					RuleID:   RuleBranchFanOut,
					TargetID: node.ID,
					Message: fmt.Sprintf("branch output %s of condition %s fans out to %d edges",
						output, node.ID, count),
					Severity: SeverityError,
				})
				fatal = true
			}
		}
	}

	return fatal
}

// checkUnproductiveCycles rejects cycles with no externally observable
// effect. A cycle that passes through a response node sends messages and is
// permitted; a cycle confined to condition/delay/integration nodes spins
// silently and is not. Terminal nodes cannot take part in a cycle as no edge
// leaves them.
func checkUnproductiveCycles(flow *models.Flow, result *Result) {
	silent := make(map[string]bool, len(flow.Nodes))

	for _, node := range flow.Nodes {
		switch node.Kind {
		case models.KindCondition, models.KindDelay:
			silent[node.ID] = true
		default:
			silent[node.ID] = node.Kind.IsIntegration()
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	state := make(map[string]int, len(silent))

	var visit func(id string) string

	visit = func(id string) string {
		state[id] = visiting

		for _, edge := range flow.OutgoingEdges(id) {
			if !silent[edge.Target] {
				continue
			}

			switch state[edge.Target] {
			case visiting:
				return edge.Target
			case unvisited:
				if cycleNode := visit(edge.Target); cycleNode != "" {
					return cycleNode
				}
			}
		}

		state[id] = done

		return ""
	}

	for id := range silent {
		if !silent[id] || state[id] != unvisited {
			continue
		}

		if cycleNode := visit(id); cycleNode != "" {
			result.Findings = append(result.Findings, Finding{
				RuleID:   RuleUnproductiveCycle,
				TargetID: cycleNode,
				Message: fmt.Sprintf(
					"node %s is part of a cycle that never sends a response", cycleNode),
				Severity: SeverityError,
			})

			return
		}
	}
}
