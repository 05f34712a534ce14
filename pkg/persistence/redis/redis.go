// Package redis provides Redis-backed persistence for pipelines and invocations.
// Records are stored as JSON values under namespaced keys; invocation snapshots
// are written with a single SET so each checkpoint is atomic.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

const (
	invocationKeyPrefix = "pipeworks:invocations:"
	pipelineKeyPrefix   = "pipeworks:pipelines:"
)

// Persistence implements the persistence layer on Redis.
type Persistence struct {
	client         redis.UniversalClient
	logger         *slog.Logger
	invocationRepo *InvocationRepository
	pipelineRepo   *PipelineRepository
}

// NewPersistence creates a new Redis persistence layer from a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Persistence{
		client:         client,
		logger:         logger.With("module", "redis_persistence"),
		invocationRepo: NewInvocationRepository(client),
		pipelineRepo:   NewPipelineRepository(client),
	}, nil
}

func (p *Persistence) InvocationRepository() persistence.InvocationRepository {
	return p.invocationRepo
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}
