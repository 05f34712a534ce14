package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// PipelineRepository handles versioned pipeline graph storage. Every version is
// kept as its own document so resumption can load the exact graph an invocation
// was started against.
type PipelineRepository struct {
	root string
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(root string) *PipelineRepository {
	return &PipelineRepository{root: root}
}

func (r *PipelineRepository) dir(pipelineID string) string {
	return filepath.Join(r.root, "pipelines", pipelineID)
}

func (r *PipelineRepository) versionPath(pipelineID string, version int) string {
	return filepath.Join(r.dir(pipelineID), fmt.Sprintf("v%d.json", version))
}

// SavePipeline persists one version of a pipeline graph.
func (r *PipelineRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	if err := validateIdentifier(pipeline.ID); err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version, err)
	}

	err := os.MkdirAll(r.dir(pipeline.ID), 0750)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to create pipeline directory: %w", err))
	}

	data, err := json.Marshal(pipeline)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to marshal pipeline: %w", err))
	}

	err = os.WriteFile(r.versionPath(pipeline.ID, pipeline.Version), data, 0600)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to write pipeline: %w", err))
	}

	return nil
}

// PipelineByVersion retrieves the exact recorded graph version.
func (r *PipelineRepository) PipelineByVersion(ctx context.Context, id string, version int) (*models.Pipeline, error) {
	if err := validateIdentifier(id); err != nil {
		return nil, persistence.NewPipelineError("PipelineByVersion", id, version, err)
	}

	data, err := os.ReadFile(r.versionPath(id, version)) // #nosec G304 -- id is validated against traversal
	if err != nil {
		if os.IsNotExist(err) {
			if _, statErr := os.Stat(r.dir(id)); os.IsNotExist(statErr) {
				return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineNotFound)
			}

			return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineVersionNotFound)
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
	if err := validateIdentifier(id); err != nil {
		return nil, persistence.NewPipelineError("PipelineByID", id, 0, err)
	}

	entries, err := os.ReadDir(r.dir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewPipelineError("PipelineByID", id, 0, persistence.ErrPipelineNotFound)
		}

		return nil, persistence.NewPipelineError("PipelineByID", id, 0, err)
	}

	latest := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".json") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(name, "v%d.json", &version); err == nil && version > latest {
			latest = version
		}
	}

	if latest == 0 {
		return nil, persistence.NewPipelineError("PipelineByID", id, 0, persistence.ErrPipelineNotFound)
	}

	return r.PipelineByVersion(ctx, id, latest)
}

// Pipelines lists the latest version of every stored pipeline.
func (r *PipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	pipelinesDir := filepath.Join(r.root, "pipelines")

	entries, err := os.ReadDir(pipelinesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Pipeline{}, nil
		}

		return nil, fmt.Errorf("failed to read pipelines directory: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pipeline, err := r.PipelineByID(ctx, entry.Name())
		if err != nil {
			continue
		}

		pipelines = append(pipelines, pipeline)
	}

	return pipelines, nil
}
