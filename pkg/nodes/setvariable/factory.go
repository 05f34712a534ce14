// Package setvariable provides the set-variable node factory for registry integration.
package setvariable

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// SetVariableNodeFactory creates SetVariableNode instances.
type SetVariableNodeFactory struct{}

// Create creates a new SetVariableNode instance.
func (f *SetVariableNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewSetVariableNode(id, config)
}

// ID returns the factory ID.
func (f *SetVariableNodeFactory) ID() string {
	return "setvariable"
}

// Name returns the factory name.
func (f *SetVariableNodeFactory) Name() string {
	return "Set Variable"
}

// Description returns the factory description.
func (f *SetVariableNodeFactory) Description() string {
	return "Writes one value into the run's global variables"
}

// Schema returns the JSON schema for set-variable node configuration.
func (f *SetVariableNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key": map[string]any{
				"type":        "string",
				"description": "Variable name to write",
				"minLength":   1,
			},
			"value": map[string]any{
				"description": "Value to store; any JSON value, including null",
			},
		},
		"required": []string{"key"},
	}
}

// NewSetVariableNodeFactory creates a new factory instance.
func NewSetVariableNodeFactory() protocol.NodeFactory {
	return &SetVariableNodeFactory{}
}
