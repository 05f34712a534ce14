package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// InvocationRepository stores invocation snapshots as JSON values.
type InvocationRepository struct {
	client redis.UniversalClient
}

// NewInvocationRepository creates a new invocation repository.
func NewInvocationRepository(client redis.UniversalClient) *InvocationRepository {
	return &InvocationRepository{client: client}
}

// SaveInvocation upserts the full snapshot with a single SET.
func (r *InvocationRepository) SaveInvocation(ctx context.Context, invocation *models.Invocation) error {
	data, err := json.Marshal(invocation)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to marshal invocation: %w", err))
	}

	err = r.client.Set(ctx, invocationKeyPrefix+invocation.ID, data, 0).Err()
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID, err)
	}

	err = r.client.SAdd(ctx, invocationKeyPrefix+"by-pipeline:"+invocation.PipelineID, invocation.ID).Err()
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID, err)
	}

	return nil
}

// InvocationByID retrieves an invocation snapshot by its ID.
func (r *InvocationRepository) InvocationByID(ctx context.Context, id string) (*models.Invocation, error) {
	data, err := r.client.Get(ctx, invocationKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewInvocationError("InvocationByID", id, persistence.ErrInvocationNotFound)
		}

		return nil, persistence.NewInvocationError("InvocationByID", id, err)
	}

	var invocation models.Invocation

	err = json.Unmarshal(data, &invocation)
	if err != nil {
		return nil, persistence.NewInvocationError("InvocationByID", id,
			fmt.Errorf("failed to unmarshal invocation: %w", err))
	}

	return &invocation, nil
}

// InvocationsByPipeline retrieves all invocation snapshots for a pipeline.
func (r *InvocationRepository) InvocationsByPipeline(ctx context.Context, pipelineID string) ([]*models.Invocation, error) {
	ids, err := r.client.SMembers(ctx, invocationKeyPrefix+"by-pipeline:"+pipelineID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations for pipeline %s: %w", pipelineID, err)
	}

	invocations := make([]*models.Invocation, 0, len(ids))

	for _, id := range ids {
		invocation, err := r.InvocationByID(ctx, id)
		if err != nil {
			if persistence.IsInvocationNotFound(err) {
				continue
			}

			return nil, err
		}

		invocations = append(invocations, invocation)
	}

	return invocations, nil
}

// DeleteInvocation removes an invocation snapshot; no-op when absent.
func (r *InvocationRepository) DeleteInvocation(ctx context.Context, id string) error {
	invocation, err := r.InvocationByID(ctx, id)
	if err != nil {
		if persistence.IsInvocationNotFound(err) {
			return nil
		}

		return err
	}

	err = r.client.Del(ctx, invocationKeyPrefix+id).Err()
	if err != nil {
		return persistence.NewInvocationError("DeleteInvocation", id, err)
	}

	return r.client.SRem(ctx, invocationKeyPrefix+"by-pipeline:"+invocation.PipelineID, id).Err()
}
