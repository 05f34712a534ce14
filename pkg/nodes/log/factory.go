// Package log provides the logging node factory for registry integration.
package log

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// LogNodeFactory creates LogNode instances.
type LogNodeFactory struct{}

// Create creates a new LogNode instance.
func (f *LogNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewLogNode(id, config)
}

// ID returns the factory ID.
func (f *LogNodeFactory) ID() string {
	return "log"
}

// Name returns the factory name.
func (f *LogNodeFactory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *LogNodeFactory) Description() string {
	return "Logs a message at a configurable level (debug, info, warn, error)"
}

// Schema returns the JSON schema for Log node configuration.
func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}

// NewLogNodeFactory creates a new factory instance.
func NewLogNodeFactory() protocol.NodeFactory {
	return &LogNodeFactory{}
}
