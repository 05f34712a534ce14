// Package input provides the input node factory for registry integration.
package input

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// InputNodeFactory creates InputNode instances.
type InputNodeFactory struct{}

// Create creates a new InputNode instance.
func (f *InputNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewInputNode(id, config)
}

// ID returns the factory ID.
func (f *InputNodeFactory) ID() string {
	return "input"
}

// Name returns the factory name.
func (f *InputNodeFactory) Name() string {
	return "Input"
}

// Description returns the factory description.
func (f *InputNodeFactory) Description() string {
	return "Suspends the run until the client sends a message, then stores the message data into a variable"
}

// Schema returns the JSON schema for input node configuration.
func (f *InputNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the client before suspending",
			},
			"store_to": map[string]any{
				"type":        "string",
				"description": "Variable name to store the inbound data under; defaults to '<node id>_input'",
			},
		},
	}
}

// NewInputNodeFactory creates a new factory instance.
func NewInputNodeFactory() protocol.NodeFactory {
	return &InputNodeFactory{}
}
