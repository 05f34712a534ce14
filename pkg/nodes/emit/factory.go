// Package emit provides the emit node factory for registry integration.
package emit

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// EmitNodeFactory creates EmitNode instances.
type EmitNodeFactory struct{}

// Create creates a new EmitNode instance.
func (f *EmitNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewEmitNode(id, config)
}

// ID returns the factory ID.
func (f *EmitNodeFactory) ID() string {
	return "emit"
}

// Name returns the factory name.
func (f *EmitNodeFactory) Name() string {
	return "Emit"
}

// Description returns the factory description.
func (f *EmitNodeFactory) Description() string {
	return "Sends a node-defined event over the run's channel"
}

// Schema returns the JSON schema for emit node configuration.
func (f *EmitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event": map[string]any{
				"type":        "string",
				"description": "Event type to send; 'completed' and 'error' are reserved",
				"minLength":   1,
			},
			"data": map[string]any{
				"description": "Static event data",
			},
			"data_from": map[string]any{
				"type":        "string",
				"description": "Variable name whose value is sent as event data; overrides 'data' when present",
			},
		},
		"required": []string{"event"},
	}
}

// NewEmitNodeFactory creates a new factory instance.
func NewEmitNodeFactory() protocol.NodeFactory {
	return &EmitNodeFactory{}
}
