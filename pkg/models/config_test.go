package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig_MatchesKind(t *testing.T) {
	tests := []struct {
		name    string
		kind    NodeKind
		raw     string
		wantErr bool
	}{
		{
			name: "whatsapp trigger",
			kind: KindWhatsAppTrigger,
			raw:  `{"instanceId": "instance-1"}`,
		},
		{
			name:    "whatsapp trigger missing instance",
			kind:    KindWhatsAppTrigger,
			raw:     `{}`,
			wantErr: true,
		},
		{
			name: "typebot trigger",
			kind: KindTypebotTrigger,
			raw:  `{"webhookUrl": "https://bot.example.com/hook", "typebotId": "bot-1"}`,
		},
		{
			name: "delay",
			kind: KindDelay,
			raw:  `{"amount": 5, "unit": "minutes"}`,
		},
		{
			name:    "delay negative amount",
			kind:    KindDelay,
			raw:     `{"amount": -1, "unit": "seconds"}`,
			wantErr: true,
		},
		{
			name:    "delay unknown unit",
			kind:    KindDelay,
			raw:     `{"amount": 1, "unit": "days"}`,
			wantErr: true,
		},
		{
			name: "condition",
			kind: KindCondition,
			raw:  `{"branches": [{"id": "b1", "predicateText": "contains(oi)", "outputId": "out-1"}]}`,
		},
		{
			name:    "condition empty predicate",
			kind:    KindCondition,
			raw:     `{"branches": [{"id": "b1", "predicateText": "", "outputId": "out-1"}]}`,
			wantErr: true,
		},
		{
			name: "spreadsheet",
			kind: KindSpreadsheet,
			raw:  `{"authorized": true, "sheetName": "Leads"}`,
		},
		{
			name: "openai",
			kind: KindOpenAI,
			raw:  `{"authorized": true, "model": "gpt-4o-mini", "promptTemplate": "Reply to {{message}}"}`,
		},
		{
			name: "end with empty config",
			kind: KindEnd,
			raw:  `{}`,
		},
		{
			name:    "kind config mismatch",
			kind:    KindDelay,
			raw:     `{"instanceId": "instance-1"}`,
			wantErr: true,
		},
		{
			name:    "unknown kind",
			kind:    NodeKind("teleport"),
			raw:     `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := DecodeConfig(tt.kind, json.RawMessage(tt.raw))

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidNodeConfig)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.kind, config.ConfigKind())
		})
	}
}

func TestDecodeConfig_NilPayload(t *testing.T) {
	config, err := DecodeConfig(KindEnd, nil)
	require.NoError(t, err)
	assert.Equal(t, EndConfig{}, config)

	_, err = DecodeConfig(KindWhatsAppTrigger, nil)
	assert.ErrorIs(t, err, ErrInvalidNodeConfig)
}

func TestConditionConfig_BranchCap(t *testing.T) {
	branches := make([]ConditionBranch, MaxConditionBranches+1)
	for i := range branches {
		branches[i] = ConditionBranch{
			ID:        "b" + string(rune('a'+i)),
			Predicate: "anything",
			OutputID:  "out-" + string(rune('a'+i)),
		}
	}

	err := ConditionConfig{Branches: branches}.Validate()
	assert.ErrorIs(t, err, ErrInvalidNodeConfig)

	err = ConditionConfig{Branches: branches[:MaxConditionBranches]}.Validate()
	assert.NoError(t, err)
}

func TestConditionConfig_DuplicateOutput(t *testing.T) {
	config := ConditionConfig{Branches: []ConditionBranch{
		{ID: "b1", Predicate: "yes", OutputID: "out-1"},
		{ID: "b2", Predicate: "no", OutputID: "out-1"},
	}}

	assert.ErrorIs(t, config.Validate(), ErrInvalidNodeConfig)
}

func TestMergeConfig_PartialUpdate(t *testing.T) {
	existing := DelayConfig{Amount: 5, Unit: DelayUnitMinutes}

	merged, err := MergeConfig(existing, json.RawMessage(`{"amount": 10}`))
	require.NoError(t, err)

	delay, ok := merged.(DelayConfig)
	require.True(t, ok)
	assert.Equal(t, 10, delay.Amount)
	assert.Equal(t, DelayUnitMinutes, delay.Unit)
}

func TestMergeConfig_RejectsForeignFields(t *testing.T) {
	existing := DelayConfig{Amount: 5, Unit: DelayUnitMinutes}

	_, err := MergeConfig(existing, json.RawMessage(`{"sheetName": "Leads"}`))
	assert.ErrorIs(t, err, ErrInvalidNodeConfig)
}
