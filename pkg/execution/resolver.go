package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// ResumptionResolver validates a resume request against a persisted snapshot
// and rehydrates an execution context. No state is mutated if any step fails.
type ResumptionResolver struct {
	invocations persistence.InvocationRepository
	pipelines   persistence.PipelineRepository
}

// NewResumptionResolver creates a resolver over the given repositories.
func NewResumptionResolver(invocations persistence.InvocationRepository, pipelines persistence.PipelineRepository) *ResumptionResolver {
	return &ResumptionResolver{invocations: invocations, pipelines: pipelines}
}

// Resolve validates that the invocation exists, belongs to the requesting user
// and pipeline, and that the exact recorded graph version still resolves every
// node identifier on the stack. Frames carry node identifiers whose shape must
// still be compatible with the graph, so resumption requires the recorded
// version, not the latest one.
func (r *ResumptionResolver) Resolve(ctx context.Context, pipelineID, invocationID, requestingUserID string) (*models.Pipeline, *models.Invocation, error) {
	invocation, err := r.invocations.InvocationByID(ctx, invocationID)
	if err != nil {
		return nil, nil, err
	}

	if invocation.UserID != requestingUserID {
		return nil, nil, fmt.Errorf("invocation %s: %w", invocationID, ErrUnauthorized)
	}

	if invocation.PipelineID != pipelineID {
		return nil, nil, fmt.Errorf("invocation %s: %w", invocationID, ErrPipelineMismatch)
	}

	pipeline, err := r.pipelines.PipelineByVersion(ctx, invocation.PipelineID, invocation.Version)
	if err != nil {
		if persistence.IsPipelineNotFound(err) || persistence.IsPipelineVersionNotFound(err) {
			return nil, nil, fmt.Errorf("pipeline %s v%d: %w", invocation.PipelineID, invocation.Version, ErrVersionMismatch)
		}

		return nil, nil, err
	}

	for _, frame := range invocation.Stack {
		if _, found := pipeline.NodeByID(frame.NodeID); !found {
			return nil, nil, fmt.Errorf("frame references unknown node %s: %w", frame.NodeID, ErrVersionMismatch)
		}
	}

	return pipeline, invocation, nil
}

// Rehydrate builds a fresh execution context from a resolved invocation,
// installing its stack, variables and parameters.
func Rehydrate(invocation *models.Invocation) *Context {
	return NewContext(invocation)
}

// IsResolutionError reports whether err belongs to the resolution taxonomy:
// the run never started and no invocation state was touched.
func IsResolutionError(err error) bool {
	return persistence.IsInvocationNotFound(err) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPipelineMismatch) ||
		errors.Is(err, ErrVersionMismatch)
}
