// Package log provides logging node implementation for pipeline execution.
package log

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// LogNode implements the Node interface for logging messages.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok {
		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

// ID returns the node ID.
func (n *LogNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *LogNode) Type() string {
	return "log"
}

// Run logs the configured message at the configured level and completes.
func (n *LogNode) Run(ctx context.Context, _ *execution.Context, _ models.Frame) (execution.Outcome, error) {
	logger := n.logger.With("node_id", n.id, "node_type", "log")

	switch n.level {
	case "debug":
		logger.DebugContext(ctx, n.message)
	case "warn":
		logger.WarnContext(ctx, n.message)
	case "error":
		logger.ErrorContext(ctx, n.message)
	default:
		logger.InfoContext(ctx, n.message)
	}

	return execution.Complete(), nil
}
