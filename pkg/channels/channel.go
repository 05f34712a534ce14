// Package channels defines the bidirectional client channel contract and a
// watermill-backed endpoint implementation shared by the concrete transports.
package channels

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// State represents the lifecycle of a channel.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// ErrChannelClosed indicates a send or receive was attempted on a channel that
// is not open.
var ErrChannelClosed = errors.New("channel closed")

// TopicToClient names the outbound topic of a connection key.
func TopicToClient(key string) string {
	return "pipeworks.channel." + key + ".out"
}

// TopicToServer names the inbound topic of a connection key.
func TopicToServer(key string) string {
	return "pipeworks.channel." + key + ".in"
}

// Channel is one side of a bidirectional message stream between the engine and
// a client run. Messages are delivered in send order; there is no batching.
type Channel interface {
	State() State
	Send(ctx context.Context, msg models.Message) error
	Receive(ctx context.Context) (models.Message, error)
	Close() error
}

// Endpoint implements Channel over a watermill publisher and an inbound
// subscription. Both transports (in-process gochannel, kafka) reduce to this.
type Endpoint struct {
	publisher message.Publisher
	inbound   <-chan *message.Message
	outTopic  string

	mu     sync.Mutex
	state  State
	closed chan struct{}
}

// NewEndpoint wires one side of a duplex stream: sends go to outTopic, receives
// drain the given subscription.
func NewEndpoint(publisher message.Publisher, inbound <-chan *message.Message, outTopic string) *Endpoint {
	return &Endpoint{
		publisher: publisher,
		inbound:   inbound,
		outTopic:  outTopic,
		state:     StateOpen,
		closed:    make(chan struct{}),
	}
}

func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Send publishes one message; program order is preserved by the transport.
func (e *Endpoint) Send(ctx context.Context, msg models.Message) error {
	if e.State() != StateOpen {
		return ErrChannelClosed
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	wmsg := message.NewMessage(watermill.NewUUID(), payload)
	wmsg.SetContext(ctx)

	return e.publisher.Publish(e.outTopic, wmsg)
}

// Receive blocks until the next inbound message, context cancellation, or
// channel closure.
func (e *Endpoint) Receive(ctx context.Context) (models.Message, error) {
	if e.State() != StateOpen {
		return models.Message{}, ErrChannelClosed
	}

	select {
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	case <-e.closed:
		return models.Message{}, ErrChannelClosed
	case wmsg, ok := <-e.inbound:
		if !ok {
			e.markClosed()

			return models.Message{}, ErrChannelClosed
		}

		wmsg.Ack()

		var msg models.Message

		err := json.Unmarshal(wmsg.Payload, &msg)
		if err != nil {
			return models.Message{}, err
		}

		return msg, nil
	}
}

// Close transitions to closed; idempotent. The underlying transport is owned by
// whoever created it and is not closed here.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return nil
	}

	e.state = StateClosed
	close(e.closed)

	return nil
}

func (e *Endpoint) markClosed() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateClosed {
		e.state = StateClosed
		close(e.closed)
	}
}
