package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/channels/gochannel"
	"github.com/zigzalgo/pipeworks/pkg/mocks"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/persistence/file"
	"github.com/zigzalgo/pipeworks/pkg/registry"
)

func newRunner(t *testing.T) (*Runner, *file.Persistence, *registry.ConnectionRegistry) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	connections := registry.NewConnectionRegistry(slog.Default())

	nodes := registry.NewRegistry(slog.Default())
	nodes.RegisterDefaultNodes()

	return NewRunner(store, connections, nodes, slog.Default()), store, connections
}

func newChannelPair(t *testing.T, key string) (*channels.Endpoint, *channels.Endpoint) {
	t.Helper()

	server, client, err := gochannel.Pair(context.Background(), watermill.NopLogger{}, key)
	require.NoError(t, err)

	return server, client
}

func awaitMessage(t *testing.T, client channels.Channel) models.Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := client.Receive(ctx)
	require.NoError(t, err)

	return msg
}

func seedLogPipeline(t *testing.T, store *file.Persistence) *models.Pipeline {
	t.Helper()

	pipeline := validPipeline()
	pipeline.ID = "order-flow"
	pipeline.Version = 1
	pipeline.Status = models.PipelineStatusPublished
	require.NoError(t, store.PipelineRepository().SavePipeline(context.Background(), pipeline))

	return pipeline
}

func seedInputPipeline(t *testing.T, store *file.Persistence) *models.Pipeline {
	t.Helper()

	pipeline := &models.Pipeline{
		ID:         "ask-flow",
		Name:       "Ask Flow",
		Version:    1,
		Status:     models.PipelineStatusPublished,
		EntryNodes: []string{"ask"},
		Nodes: []*models.PipelineNode{
			{
				ID:      "ask",
				Type:    "input",
				Name:    "Ask Name",
				Config:  map[string]any{"prompt": "name?", "store_to": "answer"},
				Enabled: true,
			},
		},
	}
	require.NoError(t, store.PipelineRepository().SavePipeline(context.Background(), pipeline))

	return pipeline
}

func TestRunner_StartRunValidation(t *testing.T) {
	runner, _, _ := newRunner(t)
	server, _ := newChannelPair(t, "validation")

	_, err := runner.StartRun(context.Background(), StartRunRequest{}, server)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunner_StartRunUnknownPipeline(t *testing.T) {
	runner, _, _ := newRunner(t)
	server, client := newChannelPair(t, "unknown-pipeline")

	req := StartRunRequest{PipelineID: "missing", Identifier: "cli-1", UserID: "user-1"}

	_, err := runner.StartRun(context.Background(), req, server)
	require.Error(t, err)
	assert.True(t, persistence.IsPipelineNotFound(err))

	msg := awaitMessage(t, client)
	assert.Equal(t, models.MessageTypeError, msg.Type)
	assert.Equal(t, channels.StateClosed, server.State())
}

func TestRunner_StartRunToCompletion(t *testing.T) {
	runner, store, connections := newRunner(t)
	seedLogPipeline(t, store)
	server, client := newChannelPair(t, "completion")

	req := StartRunRequest{
		PipelineID: "order-flow",
		Identifier: "cli-1",
		UserID:     "user-1",
		Parameters: map[string]any{"region": "eu"},
	}

	invocationID, err := runner.StartRun(context.Background(), req, server)
	require.NoError(t, err)
	require.NotEmpty(t, invocationID)

	msg := awaitMessage(t, client)
	assert.Equal(t, models.MessageTypeCompleted, msg.Type)

	runner.Wait()
	assert.Equal(t, 0, connections.Connections())
	assert.Equal(t, channels.StateClosed, server.State())

	invocation, err := store.InvocationRepository().InvocationByID(context.Background(), invocationID)
	require.NoError(t, err)
	assert.Equal(t, models.InvocationStatusPipelineCompleted, invocation.Status)
	require.NotNil(t, invocation.Success)
	assert.True(t, *invocation.Success)
	assert.Equal(t, "eu", invocation.Parameters["region"])
}

func TestRunner_StartRunIdentityCollision(t *testing.T) {
	runner, store, _ := newRunner(t)
	seedInputPipeline(t, store)

	first, firstClient := newChannelPair(t, "collision-1")
	req := StartRunRequest{PipelineID: "ask-flow", Identifier: "cli-1", UserID: "user-1"}

	_, err := runner.StartRun(context.Background(), req, first)
	require.NoError(t, err)

	// The run is now suspended on the input node and holds the identity.
	msg := awaitMessage(t, firstClient)
	assert.Equal(t, "input.requested", msg.Type)

	second, _ := newChannelPair(t, "collision-2")

	_, err = runner.StartRun(context.Background(), req, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunAlreadyConnected)
	assert.True(t, IsConflictError(err))

	// Let the first run finish.
	require.NoError(t, firstClient.Send(context.Background(), models.Message{Type: "input.provided", Data: "ada"}))

	msg = awaitMessage(t, firstClient)
	assert.Equal(t, models.MessageTypeCompleted, msg.Type)

	runner.Wait()
}

func TestRunner_ResumeRunValidation(t *testing.T) {
	runner, _, _ := newRunner(t)
	server, _ := newChannelPair(t, "resume-validation")

	err := runner.ResumeRun(context.Background(), ResumeRunRequest{}, server)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunner_ResumeRunResolutionFailure(t *testing.T) {
	runner, store, _ := newRunner(t)
	seedInputPipeline(t, store)
	server, client := newChannelPair(t, "resume-missing")

	req := ResumeRunRequest{
		PipelineID:   "ask-flow",
		InvocationID: "never-existed",
		Identifier:   "cli-1",
		UserID:       "user-1",
	}

	err := runner.ResumeRun(context.Background(), req, server)
	require.Error(t, err)
	assert.True(t, persistence.IsInvocationNotFound(err))

	msg := awaitMessage(t, client)
	assert.Equal(t, models.MessageTypeError, msg.Type)
	assert.Equal(t, channels.StateClosed, server.State())
}

func TestRunner_ResolutionFailureWithBrokenChannel(t *testing.T) {
	runner, _, _ := newRunner(t)

	// Even when the error report cannot be delivered, the resolution
	// failure is still returned to the caller.
	channel := new(mocks.MockChannel)
	channel.On("Send", mock.Anything, mock.Anything).Return(channels.ErrChannelClosed)
	channel.On("Close").Return(nil)

	req := StartRunRequest{PipelineID: "missing", Identifier: "cli-1", UserID: "user-1"}

	_, err := runner.StartRun(context.Background(), req, channel)
	require.Error(t, err)
	assert.True(t, persistence.IsPipelineNotFound(err))
	channel.AssertExpectations(t)
}

func TestRunner_ResumeRunRoundTrip(t *testing.T) {
	runner, store, connections := newRunner(t)
	seedInputPipeline(t, store)

	suspended := &models.Invocation{
		ID:         "inv-suspended",
		PipelineID: "ask-flow",
		UserID:     "user-1",
		Version:    1,
		Status:     models.InvocationStatusNodeStarted,
		Stack:      []models.Frame{{NodeID: "ask"}},
		Variables:  map[string]any{},
		Parameters: map[string]any{},
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.InvocationRepository().SaveInvocation(context.Background(), suspended))

	server, client := newChannelPair(t, "resume-round-trip")

	req := ResumeRunRequest{
		PipelineID:   "ask-flow",
		InvocationID: "inv-suspended",
		Identifier:   "cli-1",
		UserID:       "user-1",
	}

	require.NoError(t, runner.ResumeRun(context.Background(), req, server))

	// The suspended frame re-runs from its start and prompts again.
	msg := awaitMessage(t, client)
	assert.Equal(t, "input.requested", msg.Type)
	assert.Equal(t, "name?", msg.Data)

	require.NoError(t, client.Send(context.Background(), models.Message{Type: "input.provided", Data: "ada"}))

	msg = awaitMessage(t, client)
	assert.Equal(t, models.MessageTypeCompleted, msg.Type)

	runner.Wait()
	assert.Equal(t, 0, connections.Connections())

	invocation, err := store.InvocationRepository().InvocationByID(context.Background(), "inv-suspended")
	require.NoError(t, err)
	assert.Equal(t, models.InvocationStatusPipelineCompleted, invocation.Status)
	assert.Equal(t, "ada", invocation.Variables["answer"])
	assert.Empty(t, invocation.Stack)
}
