package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

func TestNewLogNode_RequiresMessage(t *testing.T) {
	_, err := NewLogNode("n1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestLogNode_Run(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}

	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			node, err := NewLogNode("n1", map[string]any{"message": "pipeline says hi", "level": level})
			require.NoError(t, err)
			assert.Equal(t, "n1", node.ID())
			assert.Equal(t, "log", node.Type())

			execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})

			outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "n1"})
			require.NoError(t, err)
			assert.Equal(t, execution.OutcomeComplete, outcome.Kind)
		})
	}
}

func TestLogNode_DefaultsToInfo(t *testing.T) {
	node, err := NewLogNode("n1", map[string]any{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "info", node.level)
}
