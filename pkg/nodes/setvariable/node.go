// Package setvariable provides a node that writes one global variable.
package setvariable

import (
	"context"
	"errors"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// SetVariableNode writes a configured key/value into the run's variables.
type SetVariableNode struct {
	id    string
	key   string
	value any
}

// NewSetVariableNode creates a new set-variable node.
func NewSetVariableNode(id string, config map[string]any) (*SetVariableNode, error) {
	key, ok := config["key"].(string)
	if !ok || key == "" {
		return nil, errors.New("missing required field 'key'")
	}

	return &SetVariableNode{
		id:    id,
		key:   key,
		value: config["value"],
	}, nil
}

// ID returns the node ID.
func (n *SetVariableNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SetVariableNode) Type() string {
	return "setvariable"
}

// Run upserts the variable and completes. Re-running is harmless: the same
// write happens again.
func (n *SetVariableNode) Run(_ context.Context, execCtx *execution.Context, _ models.Frame) (execution.Outcome, error) {
	execCtx.SetVariable(n.key, n.value)

	return execution.Complete(), nil
}
