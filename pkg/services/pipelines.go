package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/registry"
)

// Pipelines provides pipeline definition management over the persistence layer.
type Pipelines struct {
	persistence persistence.Persistence
	nodes       *registry.Registry
}

// NewPipelines creates a new pipeline service.
func NewPipelines(p persistence.Persistence, nodes *registry.Registry) *Pipelines {
	return &Pipelines{
		persistence: p,
		nodes:       nodes,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Pipelines) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every pipeline, latest published version per ID.
func (s *Pipelines) List(ctx context.Context) ([]*models.Pipeline, error) {
	pipelines, err := s.persistence.PipelineRepository().Pipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	return pipelines, nil
}

// FetchByID returns the latest published version of a pipeline.
func (s *Pipelines) FetchByID(ctx context.Context, id string) (*models.Pipeline, error) {
	return s.persistence.PipelineRepository().PipelineByID(ctx, id)
}

// FetchInvocation returns one invocation snapshot.
func (s *Pipelines) FetchInvocation(ctx context.Context, id string) (*models.Invocation, error) {
	return s.persistence.InvocationRepository().InvocationByID(ctx, id)
}

// Create validates and saves a new published pipeline version. A pipeline with
// an existing ID gets the next version number; a new ID starts at version 1.
func (s *Pipelines) Create(ctx context.Context, pipeline *models.Pipeline) (*models.Pipeline, error) {
	if err := s.validate(pipeline); err != nil {
		return nil, err
	}

	if pipeline.ID == "" {
		pipeline.ID = uuid.New().String()
	}

	pipeline.Version = 1

	latest, err := s.persistence.PipelineRepository().PipelineByID(ctx, pipeline.ID)
	if err == nil {
		pipeline.Version = latest.Version + 1
	} else if !persistence.IsPipelineNotFound(err) {
		return nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}

	now := time.Now().UTC()
	pipeline.Status = models.PipelineStatusPublished
	pipeline.CreatedAt = now
	pipeline.UpdatedAt = now

	for _, node := range pipeline.Nodes {
		if node.ID == "" {
			node.ID = uuid.New().String()
		}
	}

	if err := s.persistence.PipelineRepository().SavePipeline(ctx, pipeline); err != nil {
		return nil, fmt.Errorf("failed to save pipeline: %w", err)
	}

	return pipeline, nil
}

func (s *Pipelines) validate(pipeline *models.Pipeline) error {
	if pipeline == nil {
		return ErrPipelineNil
	}

	if pipeline.Name == "" {
		return ErrPipelineNameRequired
	}

	if len(pipeline.Nodes) == 0 {
		return ErrNodesRequired
	}

	if len(pipeline.EntryNodes) == 0 {
		return ErrEntryNodesRequired
	}

	known := s.nodes.NodeTypes()

	for _, node := range pipeline.Nodes {
		if !slices.Contains(known, node.Type) {
			return fmt.Errorf("%w: unknown node type '%s'", ErrInvalidRequest, node.Type)
		}
	}

	for _, entry := range pipeline.EntryNodes {
		if _, ok := pipeline.NodeByID(entry); !ok {
			return fmt.Errorf("%w: entry node '%s' is not in the graph", ErrInvalidRequest, entry)
		}
	}

	return nil
}
