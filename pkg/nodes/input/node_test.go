package input

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/channels/gochannel"
	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

func newBoundContext(t *testing.T, key string) (*execution.Context, *channels.Endpoint) {
	t.Helper()

	server, client, err := gochannel.Pair(context.Background(), watermill.NopLogger{}, key)
	require.NoError(t, err)

	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})
	require.NoError(t, execCtx.BindChannel(server))

	return execCtx, client
}

func TestInputNode_FirstEntryPromptsAndSuspends(t *testing.T) {
	execCtx, client := newBoundContext(t, "input-prompt")

	node, err := NewInputNode("ask", map[string]any{"prompt": "What is your name?", "store_to": "answer"})
	require.NoError(t, err)
	assert.Equal(t, "input", node.Type())

	outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "ask"})
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeSuspend, outcome.Kind)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "input.requested", msg.Type)
	assert.Equal(t, "What is your name?", msg.Data)
}

func TestInputNode_NoPromptStillSuspends(t *testing.T) {
	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})

	node, err := NewInputNode("ask", map[string]any{})
	require.NoError(t, err)

	// Without a prompt nothing is sent, so no channel is needed.
	outcome, err := node.Run(context.Background(), execCtx, models.Frame{NodeID: "ask"})
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeSuspend, outcome.Kind)
}

func TestInputNode_ReentryWithMessageCompletes(t *testing.T) {
	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})

	node, err := NewInputNode("ask", map[string]any{"prompt": "name?", "store_to": "answer"})
	require.NoError(t, err)

	frame := models.Frame{
		NodeID: "ask",
		Input:  map[string]any{"message": models.Message{Type: "input.provided", Data: "ada"}},
	}

	outcome, err := node.Run(context.Background(), execCtx, frame)
	require.NoError(t, err)
	assert.Equal(t, execution.OutcomeComplete, outcome.Kind)

	value, ok := execCtx.Variable("answer")
	require.True(t, ok)
	assert.Equal(t, "ada", value)
}

func TestInputNode_DefaultStoreTo(t *testing.T) {
	execCtx := execution.NewContext(&models.Invocation{ID: "inv-1"})

	node, err := NewInputNode("ask", map[string]any{})
	require.NoError(t, err)

	frame := models.Frame{
		NodeID: "ask",
		Input:  map[string]any{"message": "raw-data"},
	}

	_, err = node.Run(context.Background(), execCtx, frame)
	require.NoError(t, err)

	value, ok := execCtx.Variable("ask_input")
	require.True(t, ok)
	assert.Equal(t, "raw-data", value)
}
