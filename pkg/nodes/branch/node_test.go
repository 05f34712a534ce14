package branch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

func TestNewBranchNode_RequiresVariable(t *testing.T) {
	_, err := NewBranchNode("n1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable")
}

func TestBranchNode_TakesTrueBranch(t *testing.T) {
	node, err := NewBranchNode("check", map[string]any{
		"variable":   "approved",
		"when_true":  []any{"notify", "archive"},
		"when_false": []any{"reject"},
	})
	require.NoError(t, err)

	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})
	execCtx.SetVariable("approved", true)

	outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "check"})
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeContinue, outcome.Kind)
	require.Len(t, outcome.Children, 2)
	assert.Equal(t, "notify", outcome.Children[0].NodeID)
	assert.Equal(t, "archive", outcome.Children[1].NodeID)
}

func TestBranchNode_TakesFalseBranch(t *testing.T) {
	node, err := NewBranchNode("check", map[string]any{
		"variable":   "approved",
		"when_true":  []any{"notify"},
		"when_false": []any{"reject"},
	})
	require.NoError(t, err)

	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})

	// Absent variable evaluates as false.
	outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "check"})
	require.NoError(t, err)
	require.Len(t, outcome.Children, 1)
	assert.Equal(t, "reject", outcome.Children[0].NodeID)
}

func TestBranchNode_EmptyBranchContinuesWithNothing(t *testing.T) {
	node, err := NewBranchNode("check", map[string]any{
		"variable":  "approved",
		"when_true": []any{"notify"},
	})
	require.NoError(t, err)

	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})
	execCtx.SetVariable("approved", false)

	outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "check"})
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeContinue, outcome.Kind)
	assert.Empty(t, outcome.Children)
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"nil", nil, false},
		{"empty string", "", false},
		{"non-empty string", "yes", true},
		{"parseable false string", "false", false},
		{"parseable true string", "true", true},
		{"zero int", 0, false},
		{"non-zero int", 7, true},
		{"zero float", float64(0), false},
		{"non-zero float", 1.5, true},
		{"empty slice", []any{}, false},
		{"populated slice", []any{"x"}, true},
		{"empty map", map[string]any{}, false},
		{"populated map", map[string]any{"k": "v"}, true},
		{"unknown type", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTruthy(tt.value))
		})
	}
}
