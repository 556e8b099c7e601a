// Package redis provides Redis persistence for flows and contact activations.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/maqel/zapflow/pkg/persistence"
)

const connectTimeout = 5 * time.Second

// Persistence implements the persistence layer for Redis. Flows live as JSON
// documents under one key each, with a set of ids for listing; activations of
// a flow share a hash keyed by contact.
type Persistence struct {
	client         goredis.UniversalClient
	logger         *slog.Logger
	flowRepo       *FlowRepository
	activationRepo *ActivationRepository
}

// NewPersistence connects to Redis and returns a ready persistence layer.
// The URL uses the redis:// scheme, redis://localhost:6379/0 for example.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &Persistence{
		client:         client,
		logger:         logger,
		flowRepo:       NewFlowRepository(client),
		activationRepo: NewActivationRepository(client),
	}, nil
}

// FlowRepository returns the flow repository.
func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

// ActivationRepository returns the activation repository.
func (p *Persistence) ActivationRepository() persistence.ActivationRepository {
	return p.activationRepo
}

// HealthCheck verifies the Redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the Redis client.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
