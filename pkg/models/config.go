package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidNodeConfig indicates a config payload that does not satisfy the
// contract of its node kind. Mutations that would persist such a config are
// rejected; it is never stored.
var ErrInvalidNodeConfig = errors.New("invalid node config")

// NodeConfig is the typed configuration payload of a node. Exactly one
// concrete variant exists per node kind.
type NodeConfig interface {
	// ConfigKind returns the node kind this config belongs to.
	ConfigKind() NodeKind
	// Validate checks the payload against its kind's contract. Failures wrap
	// ErrInvalidNodeConfig.
	Validate() error
	// Clone returns a deep copy.
	Clone() NodeConfig
}

// WhatsAppTriggerConfig binds a flow to a WhatsApp messaging instance.
type WhatsAppTriggerConfig struct {
	InstanceID string `json:"instanceId" validate:"required"`
}

func (c WhatsAppTriggerConfig) ConfigKind() NodeKind { return KindWhatsAppTrigger }

func (c WhatsAppTriggerConfig) Validate() error {
	if c.InstanceID == "" {
		return fmt.Errorf("%w: whatsapp trigger requires instanceId", ErrInvalidNodeConfig)
	}

	return nil
}

func (c WhatsAppTriggerConfig) Clone() NodeConfig { return c }

// TypebotTriggerConfig binds a flow to a typebot webhook session.
type TypebotTriggerConfig struct {
	WebhookURL string `json:"webhookUrl" validate:"required,url"`
	TypebotID  string `json:"typebotId"  validate:"required"`
}

func (c TypebotTriggerConfig) ConfigKind() NodeKind { return KindTypebotTrigger }

func (c TypebotTriggerConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("%w: typebot trigger requires webhookUrl", ErrInvalidNodeConfig)
	}

	if c.TypebotID == "" {
		return fmt.Errorf("%w: typebot trigger requires typebotId", ErrInvalidNodeConfig)
	}

	return nil
}

func (c TypebotTriggerConfig) Clone() NodeConfig { return c }

// DelayUnit is the time unit of a delay node.
type DelayUnit string

const (
	DelayUnitSeconds DelayUnit = "seconds"
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
)

// DelayConfig pauses a contact's run for a fixed amount of time. The wait
// itself is performed by the execution runtime.
type DelayConfig struct {
	Amount int       `json:"amount" validate:"min=0"`
	Unit   DelayUnit `json:"unit"   validate:"required,oneof=seconds minutes hours"`
}

func (c DelayConfig) ConfigKind() NodeKind { return KindDelay }

func (c DelayConfig) Validate() error {
	if c.Amount < 0 {
		return fmt.Errorf("%w: delay amount must not be negative", ErrInvalidNodeConfig)
	}

	switch c.Unit {
	case DelayUnitSeconds, DelayUnitMinutes, DelayUnitHours:
		return nil
	default:
		return fmt.Errorf("%w: unknown delay unit %q", ErrInvalidNodeConfig, c.Unit)
	}
}

func (c DelayConfig) Clone() NodeConfig { return c }

// SpreadsheetConfig configures a spreadsheet integration node.
type SpreadsheetConfig struct {
	Authorized bool   `json:"authorized"`
	SheetName  string `json:"sheetName" validate:"required"`
}

func (c SpreadsheetConfig) ConfigKind() NodeKind { return KindSpreadsheet }

func (c SpreadsheetConfig) Validate() error {
	if c.SheetName == "" {
		return fmt.Errorf("%w: spreadsheet integration requires sheetName", ErrInvalidNodeConfig)
	}

	return nil
}

func (c SpreadsheetConfig) Clone() NodeConfig { return c }

// OpenAIConfig configures an AI completion integration node.
type OpenAIConfig struct {
	Authorized     bool   `json:"authorized"`
	Model          string `json:"model"          validate:"required"`
	PromptTemplate string `json:"promptTemplate" validate:"required"`
}

func (c OpenAIConfig) ConfigKind() NodeKind { return KindOpenAI }

func (c OpenAIConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: openai integration requires model", ErrInvalidNodeConfig)
	}

	if c.PromptTemplate == "" {
		return fmt.Errorf("%w: openai integration requires promptTemplate", ErrInvalidNodeConfig)
	}

	return nil
}

func (c OpenAIConfig) Clone() NodeConfig { return c }

// EndConfig is the empty config of a terminal node.
type EndConfig struct{}

func (c EndConfig) ConfigKind() NodeKind { return KindEnd }

func (c EndConfig) Validate() error { return nil }

func (c EndConfig) Clone() NodeConfig { return c }

// decodeInto decodes raw on top of base, rejecting fields the variant does
// not declare, and validates the result.
func decodeInto[T NodeConfig](raw json.RawMessage, base T) (NodeConfig, error) {
	target := base

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&target); err != nil {
		return nil, fmt.Errorf("%w: config does not match kind %q: %v",
			ErrInvalidNodeConfig, base.ConfigKind(), err)
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}

	return target, nil
}

// DecodeConfig resolves a raw config payload to the typed variant declared by
// kind and validates it. An empty payload is accepted only for kinds whose
// config has no required fields.
func DecodeConfig(kind NodeKind, raw json.RawMessage) (NodeConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch kind {
	case KindWhatsAppTrigger:
		return decodeInto(raw, WhatsAppTriggerConfig{})
	case KindTypebotTrigger:
		return decodeInto(raw, TypebotTriggerConfig{})
	case KindCondition:
		return decodeInto(raw, ConditionConfig{})
	case KindDelay:
		return decodeInto(raw, DelayConfig{})
	case KindResponse:
		return decodeInto(raw, ResponseConfig{})
	case KindSpreadsheet:
		return decodeInto(raw, SpreadsheetConfig{})
	case KindOpenAI:
		return decodeInto(raw, OpenAIConfig{})
	case KindEnd:
		return decodeInto(raw, EndConfig{})
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrInvalidNodeConfig, kind)
	}
}

// MergeConfig applies a partial config update to an existing config of the
// same kind and validates the result. A response config that switches its
// responseType starts from a zero value, so no field of the previous variant
// survives the switch.
func MergeConfig(existing NodeConfig, partial json.RawMessage) (NodeConfig, error) {
	if len(partial) == 0 {
		return existing, nil
	}

	switch config := existing.(type) {
	case WhatsAppTriggerConfig:
		return decodeInto(partial, config)
	case TypebotTriggerConfig:
		return decodeInto(partial, config)
	case ConditionConfig:
		return decodeInto(partial, config.Clone().(ConditionConfig))
	case DelayConfig:
		return decodeInto(partial, config)
	case ResponseConfig:
		return mergeResponseConfig(config, partial)
	case SpreadsheetConfig:
		return decodeInto(partial, config)
	case OpenAIConfig:
		return decodeInto(partial, config)
	case EndConfig:
		return decodeInto(partial, config)
	default:
		return nil, fmt.Errorf("%w: unsupported config type %T", ErrInvalidNodeConfig, existing)
	}
}
