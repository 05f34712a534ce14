package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/otelhelper"
)

// State represents the executor's position in the run state machine.
type State string

const (
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateWaiting   State = "waiting"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Executor advances one execution context node by node, checkpointing at every
// frame boundary and emitting events over the bound channel. Completed and
// failed are terminal and absorbing.
type Executor struct {
	pipeline  *models.Pipeline
	execution *Context
	builder   NodeBuilder
	logger    *slog.Logger
	tracer    trace.Tracer
	state     State
}

// NewExecutor creates an executor for a fresh run.
func NewExecutor(pipeline *models.Pipeline, execution *Context, builder NodeBuilder, logger *slog.Logger) *Executor {
	return &Executor{
		pipeline:  pipeline,
		execution: execution,
		builder:   builder,
		logger:    logger.With("module", "executor", "pipeline_id", pipeline.ID),
		tracer:    otelhelper.Tracer(),
		state:     StateStarting,
	}
}

// NewResumedExecutor creates an executor for a rehydrated context. It begins
// directly in the running state; no new pipeline.started checkpoint or event is
// produced, and a previously suspended top frame simply suspends again when
// re-run.
func NewResumedExecutor(pipeline *models.Pipeline, execution *Context, builder NodeBuilder, logger *slog.Logger) *Executor {
	e := NewExecutor(pipeline, execution, builder, logger)
	e.state = StateRunning

	return e
}

// State returns the executor's current state.
func (e *Executor) State() State {
	return e.state
}

// Run drives the state machine to a terminal state, a cooperative cancellation
// point, or channel loss. On channel loss the invocation is left at its last
// checkpoint and stays resumable; ErrChannelUnavailable is returned so the
// caller can release the connection entry.
func (e *Executor) Run(ctx context.Context) error {
	if e.state == StateStarting {
		err := e.start(ctx)
		if err != nil {
			return err
		}
	}

	return e.loop(ctx)
}

// start pushes the entry frames and persists the initial checkpoint. Success
// stays unset until a terminal status.
func (e *Executor) start(ctx context.Context) error {
	for i := len(e.pipeline.EntryNodes) - 1; i >= 0; i-- {
		e.execution.PushFrame(models.Frame{NodeID: e.pipeline.EntryNodes[i]})
	}

	err := e.execution.Checkpoint(ctx, models.InvocationStatusPipelineStarted)
	if err != nil {
		return fmt.Errorf("failed to persist start checkpoint: %w", err)
	}

	e.state = StateRunning

	return nil
}

func (e *Executor) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Cooperative cancellation at a checkpoint-safe point; the last
			// checkpoint stays intact and the run remains resumable.
			e.logger.InfoContext(ctx, "Run cancelled, leaving last checkpoint intact")

			return ctx.Err()
		default:
		}

		frame, ok := e.execution.PopFrame()
		if !ok {
			return e.complete(ctx)
		}

		err := e.runFrame(ctx, frame)
		if err != nil {
			return err
		}

		if e.state == StateCompleted || e.state == StateFailed {
			return nil
		}
	}
}

// runFrame executes one frame's node behavior and applies its outcome.
// Checkpoints happen only at frame boundaries, never mid-node.
func (e *Executor) runFrame(ctx context.Context, frame models.Frame) error {
	graphNode, found := e.pipeline.NodeByID(frame.NodeID)
	if !found {
		// The graph was validated at start or resolve time; a missing node here
		// is an infrastructure fault, not pipeline logic.
		return fmt.Errorf("node %s not found in pipeline %s v%d", frame.NodeID, e.pipeline.ID, e.pipeline.Version)
	}

	if !graphNode.Enabled {
		e.logger.DebugContext(ctx, "Node is disabled, skipping", "node_id", graphNode.ID)

		return e.execution.Checkpoint(ctx, models.InvocationStatusNodeCompleted)
	}

	node, err := e.builder.CreateNode(ctx, graphNode.Type, graphNode.ID, graphNode.Config)
	if err != nil {
		return fmt.Errorf("failed to create node %s: %w", graphNode.ID, err)
	}

	spanCtx, span := otelhelper.StartSpan(ctx, e.tracer, "node.run",
		attribute.String(otelhelper.PipelineIDKey, e.pipeline.ID),
		attribute.String(otelhelper.NodeIDKey, graphNode.ID),
		attribute.String(otelhelper.NodeTypeKey, graphNode.Type),
	)

	outcome, err := node.Run(spanCtx, e.execution, frame)

	otelhelper.EndSpan(span, err)

	if err != nil {
		return e.handleNodeError(ctx, graphNode, err)
	}

	return e.applyOutcome(ctx, frame, outcome)
}

func (e *Executor) applyOutcome(ctx context.Context, frame models.Frame, outcome Outcome) error {
	switch outcome.Kind {
	case OutcomeContinue:
		// Reverse push so the first child is the next frame to run.
		for i := len(outcome.Children) - 1; i >= 0; i-- {
			e.execution.PushFrame(outcome.Children[i])
		}

		return e.execution.Checkpoint(ctx, models.InvocationStatusNodeCompleted)

	case OutcomeComplete:
		return e.execution.Checkpoint(ctx, models.InvocationStatusNodeCompleted)

	case OutcomeSuspend:
		return e.suspend(ctx, frame)

	default:
		return fmt.Errorf("node %s returned unknown outcome %q", frame.NodeID, outcome.Kind)
	}
}

// suspend keeps the frame on top of the stack, persists the checkpoint, and
// blocks until the next inbound message. The woken frame re-runs from its start
// with the message attached to its input.
func (e *Executor) suspend(ctx context.Context, frame models.Frame) error {
	e.execution.PushFrame(frame)
	e.state = StateWaiting

	err := e.execution.Checkpoint(ctx, models.InvocationStatusNodeStarted)
	if err != nil {
		return fmt.Errorf("failed to persist suspend checkpoint: %w", err)
	}

	msg, err := e.execution.AwaitInboundMessage(ctx)
	if err != nil {
		if errors.Is(err, ErrChannelUnavailable) {
			// Not an error condition: the checkpoint is durable and the run
			// simply ends, eligible for later resumption.
			e.logger.InfoContext(ctx, "Channel lost while waiting for input, run stays resumable",
				"node_id", frame.NodeID)
		}

		return err
	}

	woken, ok := e.execution.PopFrame()
	if ok {
		if woken.Input == nil {
			woken.Input = make(map[string]any)
		}

		woken.Input["message"] = msg
		e.execution.PushFrame(woken)
	}

	e.state = StateRunning

	return nil
}

// handleNodeError sorts a node failure into the error taxonomy: domain errors
// drive the terminal failed transition, channel loss ends the run resumable,
// anything else is an infrastructure fault left at the last checkpoint.
func (e *Executor) handleNodeError(ctx context.Context, graphNode *models.PipelineNode, err error) error {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return e.fail(ctx, domainErr)
	}

	if errors.Is(err, ErrChannelUnavailable) {
		e.logger.InfoContext(ctx, "Channel lost during node execution, run stays resumable",
			"node_id", graphNode.ID)

		return err
	}

	e.logger.ErrorContext(ctx, "Unexpected error during node execution, leaving last checkpoint",
		"node_id", graphNode.ID, "error", err)

	return err
}

func (e *Executor) complete(ctx context.Context) error {
	err := e.execution.Checkpoint(ctx, models.InvocationStatusPipelineCompleted)
	if err != nil {
		return fmt.Errorf("failed to persist completion checkpoint: %w", err)
	}

	e.state = StateCompleted

	err = e.execution.SendEvent(ctx, models.Message{Type: models.MessageTypeCompleted})
	if err != nil {
		// The terminal checkpoint is already durable; a lost channel only means
		// nobody is listening for the final event.
		e.logger.InfoContext(ctx, "Could not deliver completion event", "error", err)
	}

	return nil
}

func (e *Executor) fail(ctx context.Context, domainErr *DomainError) error {
	err := e.execution.Checkpoint(ctx, models.InvocationStatusPipelineFailed)
	if err != nil {
		return fmt.Errorf("failed to persist failure checkpoint: %w", err)
	}

	e.state = StateFailed

	err = e.execution.SendEvent(ctx, models.Message{Type: models.MessageTypeError, Data: domainErr.Message})
	if err != nil {
		e.logger.InfoContext(ctx, "Could not deliver error event", "error", err)
	}

	return nil
}
