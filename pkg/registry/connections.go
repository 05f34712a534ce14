package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

var (
	// ErrIdentityInUse indicates an entry already exists for the exact identity.
	ErrIdentityInUse = errors.New("client identity already connected")

	// ErrUnknownClient indicates no entry exists for the identity.
	ErrUnknownClient = errors.New("unknown client")
)

// ClientIdentity is the structured key under which one live channel is
// registered. InvocationID is present only for resumed runs; it discriminates
// a resumed run from a fresh run (or another resumed run) sharing the other
// three components. Equality is plain struct equality.
type ClientIdentity struct {
	PipelineID   string
	Identifier   string
	InvocationID string
	UserID       string
}

// Key returns the wire encoding: pipelineId:identifier:userId for a fresh run,
// pipelineId:identifier:invocationId:userId for a resumed one.
func (i ClientIdentity) Key() string {
	parts := []string{i.PipelineID, i.Identifier}
	if i.InvocationID != "" {
		parts = append(parts, i.InvocationID)
	}

	return strings.Join(append(parts, i.UserID), ":")
}

// ConnectionRegistry maps a client identity to exactly one live channel across
// concurrently running invocations. The identity map is the only resource
// shared across runs; connect and disconnect are atomic per identity.
type ConnectionRegistry struct {
	mu       sync.Mutex
	channels map[ClientIdentity]channels.Channel
	logger   *slog.Logger
}

// NewConnectionRegistry creates an empty connection registry.
func NewConnectionRegistry(logger *slog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		channels: make(map[ClientIdentity]channels.Channel),
		logger:   logger.With("module", "connection_registry"),
	}
}

// Connect registers the channel under identity; fails when an entry already
// exists for that exact identity.
func (r *ConnectionRegistry) Connect(identity ClientIdentity, channel channels.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[identity]; exists {
		return fmt.Errorf("%s: %w", identity.Key(), ErrIdentityInUse)
	}

	r.channels[identity] = channel

	return nil
}

// Disconnect removes the entry; no-op if absent.
func (r *ConnectionRegistry) Disconnect(identity ClientIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.channels, identity)
}

// Send delivers one message to the identity's channel.
func (r *ConnectionRegistry) Send(ctx context.Context, identity ClientIdentity, msg models.Message) error {
	r.mu.Lock()
	channel, exists := r.channels[identity]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%s: %w", identity.Key(), ErrUnknownClient)
	}

	return channel.Send(ctx, msg)
}

// Connections returns the number of live entries.
func (r *ConnectionRegistry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.channels)
}

// CloseAll closes every channel and clears the registry; used on process
// shutdown.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, channel := range r.channels {
		if err := channel.Close(); err != nil {
			r.logger.Warn("Failed to close channel", "identity", identity.Key(), "error", err)
		}

		delete(r.channels, identity)
	}
}
