package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// PipelineRepository handles versioned pipeline graph storage.
type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(db *sql.DB, logger *slog.Logger) *PipelineRepository {
	return &PipelineRepository{db: db, logger: logger}
}

const pipelineColumns = `
	id
  , version
  , name
  , description
  , status
  , entry_nodes
  , nodes
  , created_at
  , updated_at
`

// SavePipeline persists one version of a pipeline graph.
func (r *PipelineRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	entryNodes, err := json.Marshal(pipeline.EntryNodes)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to marshal entry nodes: %w", err))
	}

	nodes, err := json.Marshal(pipeline.Nodes)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version,
			fmt.Errorf("failed to marshal nodes: %w", err))
	}

	query := `
		INSERT INTO pipelines (id, version, name, description, status, entry_nodes, nodes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id, version) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , status = EXCLUDED.status
		  , entry_nodes = EXCLUDED.entry_nodes
		  , nodes = EXCLUDED.nodes
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		pipeline.ID,
		pipeline.Version,
		pipeline.Name,
		pipeline.Description,
		pipeline.Status,
		entryNodes,
		nodes,
		pipeline.CreatedAt,
		pipeline.UpdatedAt,
	)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", pipeline.ID, pipeline.Version, err)
	}

	return nil
}

// PipelineByVersion retrieves the exact recorded graph version.
func (r *PipelineRepository) PipelineByVersion(ctx context.Context, id string, version int) (*models.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = $1 AND version = $2`

	pipeline, err := r.scanPipeline(r.db.QueryRowContext(ctx, query, id, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			exists, existsErr := r.pipelineExists(ctx, id)
			if existsErr == nil && exists {
				return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineVersionNotFound)
			}

			return nil, persistence.NewPipelineError("PipelineByVersion", id, version, persistence.ErrPipelineNotFound)
		}

		return nil, persistence.NewPipelineError("PipelineByVersion", id, version, err)
	}

	return pipeline, nil
}

// PipelineByID retrieves the highest stored version of a pipeline.
func (r *PipelineRepository) PipelineByID(ctx context.Context, id string) (*models.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = $1 ORDER BY version DESC LIMIT 1`

	pipeline, err := r.scanPipeline(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPipelineError("PipelineByID", id, 0, persistence.ErrPipelineNotFound)
		}

		return nil, persistence.NewPipelineError("PipelineByID", id, 0, err)
	}

	return pipeline, nil
}

// Pipelines lists the latest version of every stored pipeline.
func (r *PipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	query := `
		SELECT DISTINCT ON (id) ` + pipelineColumns + `
		FROM pipelines
		ORDER BY id, version DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	pipelines := make([]*models.Pipeline, 0)

	for rows.Next() {
		pipeline, err := r.scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}

		pipelines = append(pipelines, pipeline)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating pipelines: %w", err)
	}

	return pipelines, nil
}

func (r *PipelineRepository) pipelineExists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pipelines WHERE id = $1)", id).Scan(&exists)

	return exists, err
}

func (r *PipelineRepository) scanPipeline(row rowScanner) (*models.Pipeline, error) {
	var (
		pipeline   models.Pipeline
		entryNodes []byte
		nodes      []byte
	)

	err := row.Scan(
		&pipeline.ID,
		&pipeline.Version,
		&pipeline.Name,
		&pipeline.Description,
		&pipeline.Status,
		&entryNodes,
		&nodes,
		&pipeline.CreatedAt,
		&pipeline.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entryNodes, &pipeline.EntryNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry nodes: %w", err)
	}

	if err := json.Unmarshal(nodes, &pipeline.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	return &pipeline, nil
}
