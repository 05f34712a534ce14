// Package persistence provides the data storage abstraction for pipelines and
// invocation checkpoints.
package persistence

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/models"
)

// InvocationRepository stores invocation snapshots keyed by invocation ID.
// SaveInvocation upserts: the same call persists the initial record and every
// subsequent checkpoint.
type InvocationRepository interface {
	SaveInvocation(ctx context.Context, invocation *models.Invocation) error
	InvocationByID(ctx context.Context, id string) (*models.Invocation, error)
	InvocationsByPipeline(ctx context.Context, pipelineID string) ([]*models.Invocation, error)
	DeleteInvocation(ctx context.Context, id string) error
}

// PipelineRepository stores versioned pipeline graphs. PipelineByVersion must
// return the exact graph recorded at that version; resumption depends on it.
type PipelineRepository interface {
	SavePipeline(ctx context.Context, pipeline *models.Pipeline) error
	PipelineByID(ctx context.Context, id string) (*models.Pipeline, error)
	PipelineByVersion(ctx context.Context, id string, version int) (*models.Pipeline, error)
	Pipelines(ctx context.Context) ([]*models.Pipeline, error)
}

// Persistence aggregates the repositories behind one handle.
type Persistence interface {
	InvocationRepository() InvocationRepository
	PipelineRepository() PipelineRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
