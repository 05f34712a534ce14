// Package branch provides the branching node factory for registry integration.
package branch

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// BranchNodeFactory creates BranchNode instances.
type BranchNodeFactory struct{}

// Create creates a new BranchNode instance.
func (f *BranchNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewBranchNode(id, config)
}

// ID returns the factory ID.
func (f *BranchNodeFactory) ID() string {
	return "branch"
}

// Name returns the factory name.
func (f *BranchNodeFactory) Name() string {
	return "Branch"
}

// Description returns the factory description.
func (f *BranchNodeFactory) Description() string {
	return "Evaluates a variable as a boolean and continues with one of two child node lists"
}

// Schema returns the JSON schema for branch node configuration.
func (f *BranchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name to evaluate",
				"minLength":   1,
			},
			"when_true": map[string]any{
				"type":        "array",
				"description": "Node IDs to run when the variable is truthy",
				"items":       map[string]any{"type": "string"},
			},
			"when_false": map[string]any{
				"type":        "array",
				"description": "Node IDs to run when the variable is falsy",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required": []string{"variable"},
	}
}

// NewBranchNodeFactory creates a new factory instance.
func NewBranchNodeFactory() protocol.NodeFactory {
	return &BranchNodeFactory{}
}
