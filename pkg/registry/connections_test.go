package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/channels/gochannel"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/registry"
)

func newPair(t *testing.T, key string) (*channels.Endpoint, *channels.Endpoint) {
	t.Helper()

	server, client, err := gochannel.Pair(context.Background(), watermill.NopLogger{}, key)
	require.NoError(t, err)

	return server, client
}

func TestClientIdentity_Key(t *testing.T) {
	t.Parallel()

	fresh := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}
	assert.Equal(t, "pipe:term-1:alice", fresh.Key())

	resumed := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", InvocationID: "inv-9", UserID: "alice"}
	assert.Equal(t, "pipe:term-1:inv-9:alice", resumed.Key())
}

func TestConnectionRegistry_ConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	server, _ := newPair(t, "c1")

	identity := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}

	require.NoError(t, connections.Connect(identity, server))
	assert.Equal(t, 1, connections.Connections())

	connections.Disconnect(identity)
	assert.Equal(t, 0, connections.Connections())

	// Disconnecting an absent identity is a no-op.
	connections.Disconnect(identity)
	assert.Equal(t, 0, connections.Connections())
}

func TestConnectionRegistry_IdentityCollision(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	first, _ := newPair(t, "c1")
	second, _ := newPair(t, "c2")

	identity := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}

	require.NoError(t, connections.Connect(identity, first))

	err := connections.Connect(identity, second)
	assert.ErrorIs(t, err, registry.ErrIdentityInUse)
	assert.Equal(t, 1, connections.Connections())
}

func TestConnectionRegistry_InvocationIDDiscriminatesIdentities(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	fresh, _ := newPair(t, "c1")
	resumed, _ := newPair(t, "c2")

	base := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}
	withInvocation := base
	withInvocation.InvocationID = "inv-9"

	// Same pipeline, identifier and user: the invocation ID alone separates a
	// resumed run from a fresh one.
	require.NoError(t, connections.Connect(base, fresh))
	require.NoError(t, connections.Connect(withInvocation, resumed))
	assert.Equal(t, 2, connections.Connections())
}

func TestConnectionRegistry_DifferentUsersDoNotCollide(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	one, _ := newPair(t, "c1")
	two, _ := newPair(t, "c2")

	alice := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}
	bob := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "bob"}

	require.NoError(t, connections.Connect(alice, one))
	require.NoError(t, connections.Connect(bob, two))
	assert.Equal(t, 2, connections.Connections())
}

func TestConnectionRegistry_Send(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	server, client := newPair(t, "c1")

	identity := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}
	require.NoError(t, connections.Connect(identity, server))

	msg := models.Message{Type: "ping", Data: "hello"}
	require.NoError(t, connections.Send(context.Background(), identity, msg))

	received, err := client.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ping", received.Type)
	assert.Equal(t, "hello", received.Data)
}

func TestConnectionRegistry_SendToUnknownClient(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())

	identity := registry.ClientIdentity{PipelineID: "pipe", Identifier: "term-1", UserID: "alice"}
	err := connections.Send(context.Background(), identity, models.Message{Type: "ping"})
	assert.ErrorIs(t, err, registry.ErrUnknownClient)
}

func TestConnectionRegistry_CloseAll(t *testing.T) {
	t.Parallel()

	connections := registry.NewConnectionRegistry(slog.Default())
	one, _ := newPair(t, "c1")
	two, _ := newPair(t, "c2")

	require.NoError(t, connections.Connect(registry.ClientIdentity{PipelineID: "pipe", Identifier: "a", UserID: "u"}, one))
	require.NoError(t, connections.Connect(registry.ClientIdentity{PipelineID: "pipe", Identifier: "b", UserID: "u"}, two))

	connections.CloseAll()

	assert.Equal(t, 0, connections.Connections())
	assert.Equal(t, channels.StateClosed, one.State())
	assert.Equal(t, channels.StateClosed, two.State())
}
