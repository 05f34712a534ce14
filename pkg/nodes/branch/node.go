// Package branch provides conditional branching for pipeline execution.
// This is the control flow node that pushes one of two child frame lists.
package branch

import (
	"context"
	"errors"
	"strconv"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// BranchNode reads one variable, evaluates it as a boolean and continues with
// the configured child nodes for that outcome.
type BranchNode struct {
	id        string
	variable  string
	whenTrue  []string
	whenFalse []string
}

// NewBranchNode creates a new branching node.
func NewBranchNode(id string, config map[string]any) (*BranchNode, error) {
	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, errors.New("missing required field 'variable'")
	}

	return &BranchNode{
		id:        id,
		variable:  variable,
		whenTrue:  stringSlice(config["when_true"]),
		whenFalse: stringSlice(config["when_false"]),
	}, nil
}

// ID returns the node ID.
func (n *BranchNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *BranchNode) Type() string {
	return "branch"
}

// Run evaluates the variable and pushes the child frames for the taken branch.
// Re-running re-evaluates against the current variables, which is exactly the
// re-entry behavior frames must have.
func (n *BranchNode) Run(_ context.Context, execCtx *execution.Context, _ models.Frame) (execution.Outcome, error) {
	value, _ := execCtx.Variable(n.variable)

	children := n.whenFalse
	if isTruthy(value) {
		children = n.whenTrue
	}

	frames := make([]models.Frame, 0, len(children))
	for _, nodeID := range children {
		frames = append(frames, models.Frame{NodeID: nodeID})
	}

	return execution.Continue(frames...), nil
}

// isTruthy converts various types to boolean.
func isTruthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}

	return result
}
