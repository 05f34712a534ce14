package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/channels/gochannel"
	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence/file"

	"github.com/ThreeDotsLabs/watermill"
)

func newTestInvocation() *models.Invocation {
	now := time.Now().UTC()

	return &models.Invocation{
		ID:         "inv-1",
		PipelineID: "pipe-1",
		UserID:     "user-1",
		Version:    1,
		Status:     models.InvocationStatusPipelineStarted,
		Variables:  map[string]any{"existing": "value"},
		Parameters: map[string]any{"region": "eu"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestContext_VariableTriState(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	value, ok := execCtx.Variable("existing")
	require.True(t, ok)
	assert.Equal(t, "value", value)

	value, ok = execCtx.Variable("absent")
	assert.False(t, ok)
	assert.Nil(t, value)

	execCtx.SetVariable("stored-nil", nil)

	value, ok = execCtx.Variable("stored-nil")
	assert.True(t, ok)
	assert.Nil(t, value)
}

func TestContext_ParameterReadOnlyView(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	value, ok := execCtx.Parameter("region")
	require.True(t, ok)
	assert.Equal(t, "eu", value)

	_, ok = execCtx.Parameter("absent")
	assert.False(t, ok)
}

func TestContext_StackLIFO(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	execCtx.PushFrame(models.Frame{NodeID: "a"})
	execCtx.PushFrame(models.Frame{NodeID: "b"})
	require.Equal(t, 2, execCtx.StackDepth())

	frame, ok := execCtx.PopFrame()
	require.True(t, ok)
	assert.Equal(t, "b", frame.NodeID)

	frame, ok = execCtx.PopFrame()
	require.True(t, ok)
	assert.Equal(t, "a", frame.NodeID)
}

func TestContext_PopEmptyStackIsNotAnError(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	frame, ok := execCtx.PopFrame()
	assert.False(t, ok)
	assert.Empty(t, frame.NodeID)
	assert.Equal(t, 0, execCtx.StackDepth())
}

func TestContext_ReplaceStackDefensiveCopy(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	frames := []models.Frame{{NodeID: "a"}, {NodeID: "b"}}
	execCtx.ReplaceStack(frames)

	frames[0].NodeID = "mutated"

	snapshot, _ := execCtx.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].NodeID)
}

func TestContext_ReplaceVariablesDefensiveCopy(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	variables := map[string]any{"key": "original"}
	execCtx.ReplaceVariables(variables)

	variables["key"] = "mutated"

	value, ok := execCtx.Variable("key")
	require.True(t, ok)
	assert.Equal(t, "original", value)
}

func TestContext_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())
	execCtx.PushFrame(models.Frame{NodeID: "a"})

	stack, variables := execCtx.Snapshot()
	stack[0].NodeID = "mutated"
	variables["existing"] = "mutated"

	frame, ok := execCtx.PopFrame()
	require.True(t, ok)
	assert.Equal(t, "a", frame.NodeID)

	value, _ := execCtx.Variable("existing")
	assert.Equal(t, "value", value)
}

func TestContext_BindRejectsRebinding(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())
	store := file.NewInvocationRepository(t.TempDir())

	require.NoError(t, execCtx.BindPersistence(store))
	assert.ErrorIs(t, execCtx.BindPersistence(store), execution.ErrAlreadyBound)

	server, _, err := gochannel.Pair(context.Background(), watermill.NopLogger{}, "bind-test")
	require.NoError(t, err)

	require.NoError(t, execCtx.BindChannel(server))
	assert.ErrorIs(t, execCtx.BindChannel(server), execution.ErrAlreadyBound)
}

func TestContext_SendEventWithoutChannel(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	err := execCtx.SendEvent(context.Background(), models.Message{Type: "ping"})
	assert.ErrorIs(t, err, execution.ErrChannelUnavailable)
}

func TestContext_SendEventOnClosedChannel(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	server, _, err := gochannel.Pair(context.Background(), watermill.NopLogger{}, "closed-send")
	require.NoError(t, err)
	require.NoError(t, execCtx.BindChannel(server))
	require.NoError(t, server.Close())

	err = execCtx.SendEvent(context.Background(), models.Message{Type: "ping"})
	assert.ErrorIs(t, err, execution.ErrChannelUnavailable)
}

func TestContext_CheckpointPersistsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	invocation := newTestInvocation()
	execCtx := execution.NewContext(invocation)
	store := file.NewInvocationRepository(t.TempDir())
	require.NoError(t, execCtx.BindPersistence(store))

	execCtx.PushFrame(models.Frame{NodeID: "a"})
	execCtx.SetVariable("step", 1)

	require.NoError(t, execCtx.Checkpoint(ctx, models.InvocationStatusNodeCompleted))

	saved, err := store.InvocationByID(ctx, invocation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvocationStatusNodeCompleted, saved.Status)
	require.Len(t, saved.Stack, 1)
	assert.Equal(t, "a", saved.Stack[0].NodeID)
	assert.EqualValues(t, 1, saved.Variables["step"])
	assert.Nil(t, saved.Success)
	assert.False(t, saved.UpdatedAt.Before(saved.CreatedAt))
}

func TestContext_CheckpointTerminalIsAbsorbing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	invocation := newTestInvocation()
	execCtx := execution.NewContext(invocation)
	store := file.NewInvocationRepository(t.TempDir())
	require.NoError(t, execCtx.BindPersistence(store))

	require.NoError(t, execCtx.Checkpoint(ctx, models.InvocationStatusPipelineCompleted))

	saved, err := store.InvocationByID(ctx, invocation.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Success)
	assert.True(t, *saved.Success)

	// Further checkpoints leave the terminal record untouched.
	require.NoError(t, execCtx.Checkpoint(ctx, models.InvocationStatusPipelineFailed))

	saved, err = store.InvocationByID(ctx, invocation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvocationStatusPipelineCompleted, saved.Status)
	require.NotNil(t, saved.Success)
	assert.True(t, *saved.Success)
}

func TestContext_CheckpointWithoutPersistence(t *testing.T) {
	t.Parallel()

	execCtx := execution.NewContext(newTestInvocation())

	err := execCtx.Checkpoint(context.Background(), models.InvocationStatusNodeCompleted)
	assert.Error(t, err)
}
