// Package main provides the Pipeworks execution engine daemon.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"

	"github.com/zigzalgo/pipeworks/pkg/cmd"
	"github.com/zigzalgo/pipeworks/pkg/registry"
	"github.com/zigzalgo/pipeworks/pkg/services"
)

// RunsTopic carries start and resume requests for the engine.
const RunsTopic = "pipeworks.runs"

// RunRequest is the control message a client publishes to begin or continue a
// run. The engine answers over the duplex channel topics derived from the
// client identity.
type RunRequest struct {
	Action       string         `json:"action"        validate:"required,oneof=start resume"`
	PipelineID   string         `json:"pipeline_id"   validate:"required"`
	InvocationID string         `json:"invocation_id"`
	Identifier   string         `json:"identifier"    validate:"required"`
	UserID       string         `json:"user_id"       validate:"required"`
	Parameters   map[string]any `json:"parameters"`
}

// Engine consumes run requests and hands them to the runner, one goroutine per
// run.
type Engine struct {
	transport *cmd.Transport
	runner    *services.Runner
	validator *validator.Validate
	logger    *slog.Logger
}

func NewEngine(transport *cmd.Transport, runner *services.Runner, logger *slog.Logger) *Engine {
	return &Engine{
		transport: transport,
		runner:    runner,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("module", "engine"),
	}
}

// Start consumes the runs topic until the context is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	requests, err := e.transport.Subscribe(ctx, RunsTopic)
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Engine started, consuming run requests", "topic", RunsTopic)

	for {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "Engine stopping")

			return nil
		case wmsg, ok := <-requests:
			if !ok {
				return nil
			}

			wmsg.Ack()
			e.dispatch(ctx, wmsg)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, wmsg *message.Message) {
	var req RunRequest

	if err := json.Unmarshal(wmsg.Payload, &req); err != nil {
		e.logger.ErrorContext(ctx, "Discarding malformed run request", "error", err)

		return
	}

	if err := e.validator.Struct(req); err != nil {
		e.logger.ErrorContext(ctx, "Discarding invalid run request", "error", err)

		return
	}

	identity := registry.ClientIdentity{
		PipelineID: req.PipelineID,
		Identifier: req.Identifier,
		UserID:     req.UserID,
	}
	if req.Action == "resume" {
		identity.InvocationID = req.InvocationID
	}

	channel, err := e.transport.OpenChannel(ctx, channelKey(identity))
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to open channel", "identity", identity.Key(), "error", err)

		return
	}

	switch req.Action {
	case "start":
		invocationID, err := e.runner.StartRun(ctx, services.StartRunRequest{
			PipelineID: req.PipelineID,
			Identifier: req.Identifier,
			UserID:     req.UserID,
			Parameters: req.Parameters,
		}, channel)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to start run", "identity", identity.Key(), "error", err)

			return
		}

		e.logger.InfoContext(ctx, "Run started", "identity", identity.Key(), "invocation_id", invocationID)
	case "resume":
		err := e.runner.ResumeRun(ctx, services.ResumeRunRequest{
			PipelineID:   req.PipelineID,
			InvocationID: req.InvocationID,
			Identifier:   req.Identifier,
			UserID:       req.UserID,
		}, channel)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to resume run", "identity", identity.Key(), "error", err)

			return
		}

		e.logger.InfoContext(ctx, "Run resumed", "identity", identity.Key(), "invocation_id", req.InvocationID)
	}
}

// channelKey flattens the identity into a topic-safe connection key.
func channelKey(identity registry.ClientIdentity) string {
	return strings.ReplaceAll(identity.Key(), ":", ".")
}
