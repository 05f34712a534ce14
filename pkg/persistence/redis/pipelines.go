package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// PipelineRepository stores each pipeline version as its own JSON value and
// tracks the latest version per pipeline in a hash.
type PipelineRepository struct {
	client redis.UniversalClient
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(client redis.UniversalClient) *PipelineRepository {
	return &PipelineRepository{client: client}
}

func pipelineVersionKey(id string, version int) string {
	return fmt.Sprintf("%s%s:v%d", pipelineKeyPrefix, id, version)
}

const latestVersionsKey = pipelineKeyPrefix + "latest"

// SavePipeline persists one version of a pipeline graph.
func (r *PipelineRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	data, err := json.Marshal(pipeline)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to marshal pipeline: %w", err))
	}

	err = r.client.Set(ctx, pipelineVersionKey(pipeline.ID, pipeline.Version), data, 0).Err()
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version, err)
	}

	latest, err := r.latestVersion(ctx, pipeline.ID)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version, err)
	}

	if pipeline.Version > latest {
		err = r.client.HSet(ctx, latestVersionsKey, pipeline.ID, pipeline.Version).Err()
		if err != nil {
			return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version, err)
		}
	}

	return nil
}

// PipelineByVersion retrieves the exact recorded graph version.
func (r *PipelineRepository) PipelineByVersion(ctx context.Context, id string, version int) (*models.Pipeline, error) {
	data, err := r.client.Get(ctx, pipelineVersionKey(id, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			latest, latestErr := r.latestVersion(ctx, id)
			if latestErr == nil && latest > 0 {
				return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineVersionNotFound)
			}

			return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineNotFound)
		}

		return nil, persistence.NewPipelineError("PipelineByVersion", id, version, err)
	}

	var pipeline models.Pipeline

	err = json.Unmarshal(data, &pipeline)
	if err != nil {
		return nil, persistence.NewPipelineError("PipelineByVersion", id, version,
			fmt.Errorf("failed to unmarshal pipeline: %w", err))
	}

	return &pipeline, nil
}

// PipelineByID retrieves the highest stored version of a pipeline.
func (r *PipelineRepository) PipelineByID(ctx context.Context, id string) (*models.Pipeline, error) {
	latest, err := r.latestVersion(ctx, id)
	if err != nil {
		return nil, persistence.NewPipelineError("PipelineByID", id, 0, err)
	}

	if latest == 0 {
		return nil, persistence.NewPipelineError("PipelineByID", id, 0, persistence.ErrPipelineNotFound)
	}

	return r.PipelineByVersion(ctx, id, latest)
}

// Pipelines lists the latest version of every stored pipeline.
func (r *PipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	entries, err := r.client.HGetAll(ctx, latestVersionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0, len(entries))

	for id, versionValue := range entries {
		version, err := strconv.Atoi(versionValue)
		if err != nil {
			continue
		}

		pipeline, err := r.PipelineByVersion(ctx, id, version)
		if err != nil {
			continue
		}

		pipelines = append(pipelines, pipeline)
	}

	return pipelines, nil
}

func (r *PipelineRepository) latestVersion(ctx context.Context, id string) (int, error) {
	value, err := r.client.HGet(ctx, latestVersionsKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, err
	}

	return strconv.Atoi(value)
}
