package validation

import (
	"testing"

	"github.com/maqel/zapflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

// branchedFlow builds: trigger -> condition (2 branches) -> two responses ->
// one shared terminal.
func branchedFlow() *models.Flow {
	return &models.Flow{
		ID:     "flow-1",
		Name:   "Branching flow",
		Status: models.FlowStatusDraft,
		Nodes: []*models.Node{
			{ID: "trigger-1", Kind: models.KindWhatsAppTrigger,
				Config: models.WhatsAppTriggerConfig{InstanceID: "instance-1"}},
			{ID: "cond-1", Kind: models.KindCondition,
				Config: models.ConditionConfig{Branches: []models.ConditionBranch{
					{ID: "b1", Predicate: "contains(sim)", OutputID: "out-yes"},
					{ID: "b2", Predicate: "contains(nao)", OutputID: "out-no"},
				}}},
			{ID: "resp-yes", Kind: models.KindResponse,
				Config: models.ResponseConfig{Type: models.ResponseText, Content: "otimo"}},
			{ID: "resp-no", Kind: models.KindResponse,
				Config: models.ResponseConfig{Type: models.ResponseText, Content: "tudo bem"}},
			{ID: "end-1", Kind: models.KindEnd, Config: models.EndConfig{}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "cond-1"},
			{ID: "e2", Source: "cond-1", Target: "resp-yes", SourceOutput: ptr("out-yes")},
			{ID: "e3", Source: "cond-1", Target: "resp-no", SourceOutput: ptr("out-no")},
			{ID: "e4", Source: "resp-yes", Target: "end-1"},
			{ID: "e5", Source: "resp-no", Target: "end-1"},
		},
	}
}

func TestValidate_BranchedFlowPasses(t *testing.T) {
	result := Validate(branchedFlow())

	assert.True(t, result.Valid())
	assert.Empty(t, result.Findings)
}

func TestValidate_TerminalReachabilityNotRequired(t *testing.T) {
	flow := branchedFlow()

	// Cut both inbound edges of the terminal. The terminal becomes an
	// orphan, which only warns; activation stays possible.
	flow.Edges = flow.Edges[:3]

	result := Validate(flow)

	assert.True(t, result.Valid())
	require.Len(t, result.Findings, 1)
	assert.Equal(t, RuleOrphanNode, result.Findings[0].RuleID)
	assert.Equal(t, "end-1", result.Findings[0].TargetID)
	assert.Equal(t, SeverityWarning, result.Findings[0].Severity)
}

func TestValidate_NoTriggerIsFatalAndWins(t *testing.T) {
	flow := branchedFlow()
	flow.Nodes = flow.Nodes[1:]
	flow.Edges = flow.Edges[1:]

	result := Validate(flow)

	assert.False(t, result.Valid())
	require.Len(t, result.Findings, 1, "first fatal rule must short-circuit the rest")
	assert.Equal(t, RuleTriggerRequired, result.Findings[0].RuleID)
}

func TestValidate_BranchFanOutIsFatal(t *testing.T) {
	flow := branchedFlow()
	flow.Edges = append(flow.Edges, &models.Edge{
		ID: "e6", Source: "cond-1", Target: "resp-no", SourceOutput: ptr("out-yes"),
	})

	result := Validate(flow)

	assert.False(t, result.Valid())

	var found bool

	for _, finding := range result.Findings {
		if finding.RuleID == RuleBranchFanOut {
			found = true

			assert.Equal(t, "cond-1", finding.TargetID)
		}
	}

	assert.True(t, found)
}

func TestValidate_UnproductiveCycleRejected(t *testing.T) {
	// trigger -> delay -> condition -> (loop) delay; no response in the loop.
	flow := &models.Flow{
		ID: "flow-loop", Name: "Loop", Status: models.FlowStatusDraft,
		Nodes: []*models.Node{
			{ID: "trigger-1", Kind: models.KindWhatsAppTrigger,
				Config: models.WhatsAppTriggerConfig{InstanceID: "instance-1"}},
			{ID: "delay-1", Kind: models.KindDelay,
				Config: models.DelayConfig{Amount: 1, Unit: models.DelayUnitMinutes}},
			{ID: "cond-1", Kind: models.KindCondition,
				Config: models.ConditionConfig{Branches: []models.ConditionBranch{
					{ID: "b1", Predicate: "retry", OutputID: "out-retry"},
				}}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "delay-1"},
			{ID: "e2", Source: "delay-1", Target: "cond-1"},
			{ID: "e3", Source: "cond-1", Target: "delay-1", SourceOutput: ptr("out-retry")},
		},
	}

	result := Validate(flow)

	assert.False(t, result.Valid())

	var found bool

	for _, finding := range result.Findings {
		if finding.RuleID == RuleUnproductiveCycle {
			found = true
		}
	}

	assert.True(t, found)
}

func TestValidate_CycleThroughResponseIsPermitted(t *testing.T) {
	// trigger -> response -> condition -> (loop) response: the loop sends a
	// message each pass, so it has an observable effect.
	flow := &models.Flow{
		ID: "flow-remind", Name: "Reminder", Status: models.FlowStatusDraft,
		Nodes: []*models.Node{
			{ID: "trigger-1", Kind: models.KindWhatsAppTrigger,
				Config: models.WhatsAppTriggerConfig{InstanceID: "instance-1"}},
			{ID: "resp-1", Kind: models.KindResponse,
				Config: models.ResponseConfig{Type: models.ResponseText, Content: "lembrete"}},
			{ID: "cond-1", Kind: models.KindCondition,
				Config: models.ConditionConfig{Branches: []models.ConditionBranch{
					{ID: "b1", Predicate: "no reply", OutputID: "out-again"},
				}}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger-1", Target: "resp-1"},
			{ID: "e2", Source: "resp-1", Target: "cond-1"},
			{ID: "e3", Source: "cond-1", Target: "resp-1", SourceOutput: ptr("out-again")},
		},
	}

	result := Validate(flow)

	assert.True(t, result.Valid())
}

func TestValidate_EmptyGraphOnlyMissesTrigger(t *testing.T) {
	flow := &models.Flow{ID: "empty", Name: "Empty", Status: models.FlowStatusDraft}

	result := Validate(flow)

	assert.False(t, result.Valid())
	require.Len(t, result.Findings, 1)
	assert.Equal(t, RuleTriggerRequired, result.Findings[0].RuleID)
}
