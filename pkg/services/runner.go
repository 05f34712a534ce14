package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/registry"
)

// StartRunRequest starts a fresh invocation of the latest published pipeline.
type StartRunRequest struct {
	PipelineID string `validate:"required"`
	Identifier string `validate:"required"`
	UserID     string `validate:"required"`
	Parameters map[string]any
}

// ResumeRunRequest resumes a previously checkpointed invocation.
type ResumeRunRequest struct {
	PipelineID   string `validate:"required"`
	InvocationID string `validate:"required"`
	Identifier   string `validate:"required"`
	UserID       string `validate:"required"`
}

// Runner orchestrates runs end to end: it creates or rehydrates the execution
// context, registers the channel, and drives the executor on its own
// goroutine. Each invocation runs as one independent goroutine bound to
// exactly one context and one channel; the connection registry is the only
// state shared across runs.
type Runner struct {
	persistence persistence.Persistence
	connections *registry.ConnectionRegistry
	nodes       *registry.Registry
	resolver    *execution.ResumptionResolver
	validator   *validator.Validate
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewRunner creates a runner over the given collaborators.
func NewRunner(p persistence.Persistence, connections *registry.ConnectionRegistry, nodes *registry.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		persistence: p,
		connections: connections,
		nodes:       nodes,
		resolver:    execution.NewResumptionResolver(p.InvocationRepository(), p.PipelineRepository()),
		validator:   validator.New(),
		logger:      logger.With("module", "runner"),
	}
}

// StartRun begins a fresh run over the given channel and returns the new
// invocation ID. The executor runs on its own goroutine until a terminal
// state or channel loss.
func (r *Runner) StartRun(ctx context.Context, req StartRunRequest, channel channels.Channel) (string, error) {
	err := r.validator.Struct(req)
	if err != nil {
		return "", errors.Join(ErrInvalidRequest, err)
	}

	pipeline, err := r.persistence.PipelineRepository().PipelineByID(ctx, req.PipelineID)
	if err != nil {
		r.reportAndClose(ctx, channel, err)

		return "", err
	}

	now := time.Now().UTC()
	invocation := &models.Invocation{
		ID:         uuid.New().String(),
		PipelineID: pipeline.ID,
		UserID:     req.UserID,
		Version:    pipeline.Version,
		Status:     models.InvocationStatusPipelineStarted,
		Parameters: req.Parameters,
		Variables:  map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	execCtx := execution.NewContext(invocation)

	identity := registry.ClientIdentity{
		PipelineID: pipeline.ID,
		Identifier: req.Identifier,
		UserID:     req.UserID,
	}

	err = r.launch(ctx, execCtx, channel, identity, func() *execution.Executor {
		return execution.NewExecutor(pipeline, execCtx, r.nodes, r.logger)
	})
	if err != nil {
		return "", err
	}

	return invocation.ID, nil
}

// ResumeRun validates the resume request, rehydrates the context and continues
// the run over the given channel. Resolution failures are reported as a single
// error event and the run never starts; no invocation state is touched.
func (r *Runner) ResumeRun(ctx context.Context, req ResumeRunRequest, channel channels.Channel) error {
	err := r.validator.Struct(req)
	if err != nil {
		return errors.Join(ErrInvalidRequest, err)
	}

	pipeline, invocation, err := r.resolver.Resolve(ctx, req.PipelineID, req.InvocationID, req.UserID)
	if err != nil {
		r.reportAndClose(ctx, channel, err)

		return err
	}

	execCtx := execution.Rehydrate(invocation)

	identity := registry.ClientIdentity{
		PipelineID:   pipeline.ID,
		Identifier:   req.Identifier,
		InvocationID: invocation.ID,
		UserID:       req.UserID,
	}

	return r.launch(ctx, execCtx, channel, identity, func() *execution.Executor {
		return execution.NewResumedExecutor(pipeline, execCtx, r.nodes, r.logger)
	})
}

// launch binds the channel and persistence, claims the identity, and starts
// the executor goroutine.
func (r *Runner) launch(
	ctx context.Context,
	execCtx *execution.Context,
	channel channels.Channel,
	identity registry.ClientIdentity,
	build func() *execution.Executor,
) error {
	err := execCtx.BindPersistence(r.persistence.InvocationRepository())
	if err != nil {
		return err
	}

	err = execCtx.BindChannel(channel)
	if err != nil {
		return err
	}

	err = r.connections.Connect(identity, channel)
	if err != nil {
		if errors.Is(err, registry.ErrIdentityInUse) {
			return errors.Join(ErrRunAlreadyConnected, err)
		}

		return err
	}

	executor := build()

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer r.connections.Disconnect(identity)

		runErr := executor.Run(ctx)

		switch {
		case runErr == nil:
			// Terminal state reached; the channel has served its purpose.
			if err := channel.Close(); err != nil {
				r.logger.Warn("Failed to close channel after run", "identity", identity.Key(), "error", err)
			}
		case errors.Is(runErr, execution.ErrChannelUnavailable), errors.Is(runErr, context.Canceled):
			// Last checkpoint is durable; the run stays resumable.
			r.logger.Info("Run ended without terminal state, resumable from last checkpoint",
				"identity", identity.Key())
		default:
			r.logger.Error("Run aborted on unexpected error, leaving last checkpoint",
				"identity", identity.Key(), "error", runErr)

			if err := channel.Close(); err != nil {
				r.logger.Warn("Failed to close channel after error", "identity", identity.Key(), "error", err)
			}
		}
	}()

	return nil
}

// reportAndClose delivers one error event and closes the channel; used when a
// run fails before it starts.
func (r *Runner) reportAndClose(ctx context.Context, channel channels.Channel, cause error) {
	err := channel.Send(ctx, models.Message{Type: models.MessageTypeError, Data: cause.Error()})
	if err != nil {
		r.logger.Warn("Failed to report resolution error", "error", err)
	}

	if err := channel.Close(); err != nil {
		r.logger.Warn("Failed to close channel", "error", err)
	}
}

// Wait blocks until every launched run goroutine has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}
