package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/maqel/zapflow/pkg/models"
)

const activationKeyPrefix = "zapflow:activations:"

// ActivationRepository handles contact activation Redis operations. Each
// flow's activations share one hash keyed by contact, so ClearFlow is a
// single DEL.
type ActivationRepository struct {
	client goredis.UniversalClient
}

// NewActivationRepository creates a new activation repository.
func NewActivationRepository(client goredis.UniversalClient) *ActivationRepository {
	return &ActivationRepository{client: client}
}

func activationKey(flowID string) string {
	return activationKeyPrefix + flowID
}

// Get returns the activation for the pair, or nil when none exists.
func (r *ActivationRepository) Get(ctx context.Context, flowID, contact string) (*models.ContactActivation, error) {
	data, err := r.client.HGet(ctx, activationKey(flowID), contact).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get activation %s/%s: %w", flowID, contact, err)
	}

	var activation models.ContactActivation
	if err := json.Unmarshal(data, &activation); err != nil {
		return nil, fmt.Errorf("failed to decode activation %s/%s: %w", flowID, contact, err)
	}

	return &activation, nil
}

// Put upserts the activation record for the pair.
func (r *ActivationRepository) Put(ctx context.Context, activation *models.ContactActivation) error {
	data, err := json.Marshal(activation)
	if err != nil {
		return fmt.Errorf("failed to encode activation %s/%s: %w",
			activation.FlowID, activation.Contact, err)
	}

	err = r.client.HSet(ctx, activationKey(activation.FlowID), activation.Contact, data).Err()
	if err != nil {
		return fmt.Errorf("failed to save activation %s/%s: %w",
			activation.FlowID, activation.Contact, err)
	}

	return nil
}

// ClearFlow removes every activation of the flow.
func (r *ActivationRepository) ClearFlow(ctx context.Context, flowID string) error {
	if err := r.client.Del(ctx, activationKey(flowID)).Err(); err != nil {
		return fmt.Errorf("failed to clear activations for flow %s: %w", flowID, err)
	}

	return nil
}

// ListByFlow returns the flow's activations, most recently entered first.
func (r *ActivationRepository) ListByFlow(ctx context.Context, flowID string) ([]*models.ContactActivation, error) {
	entries, err := r.client.HGetAll(ctx, activationKey(flowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list activations for flow %s: %w", flowID, err)
	}

	activations := make([]*models.ContactActivation, 0, len(entries))

	for contact, data := range entries {
		var activation models.ContactActivation
		if err := json.Unmarshal([]byte(data), &activation); err != nil {
			return nil, fmt.Errorf("failed to decode activation %s/%s: %w", flowID, contact, err)
		}

		activations = append(activations, &activation)
	}

	sort.Slice(activations, func(i, j int) bool {
		if activations[i].EnteredAt.Equal(activations[j].EnteredAt) {
			return activations[i].Contact < activations[j].Contact
		}

		return activations[i].EnteredAt.After(activations[j].EnteredAt)
	})

	return activations, nil
}
