package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/channels/kafka"
)

// Transport carries the pub/sub pair behind every client channel of one
// process. Kafka reaches remote clients; memory is in-process only.
type Transport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewTransport builds the channel transport selected by provider.
func NewTransport(provider string, logger *slog.Logger) (*Transport, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		publisher, subscriber, err := kafka.CreateTransport(wmLogger, "pipeworks")
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka transport: %w", err)
		}

		return &Transport{publisher: publisher, subscriber: subscriber}, nil
	case "memory":
		pubSub := gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			wmLogger,
		)

		return &Transport{publisher: pubSub, subscriber: pubSub}, nil
	default:
		return nil, fmt.Errorf("unsupported channel provider: %s", provider)
	}
}

// OpenChannel creates the engine side of the duplex channel for a connection
// key.
func (t *Transport) OpenChannel(ctx context.Context, key string) (channels.Channel, error) {
	inbound, err := t.subscriber.Subscribe(ctx, channels.TopicToServer(key))
	if err != nil {
		return nil, err
	}

	return channels.NewEndpoint(t.publisher, inbound, channels.TopicToClient(key)), nil
}

// Subscribe opens a raw subscription, used for control topics.
func (t *Transport) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return t.subscriber.Subscribe(ctx, topic)
}

// Publish sends one raw message, used by in-process clients and tests.
func (t *Transport) Publish(topic string, msg *message.Message) error {
	return t.publisher.Publish(topic, msg)
}

// Close tears down the underlying pub/sub.
func (t *Transport) Close() error {
	if err := t.publisher.Close(); err != nil {
		return err
	}

	return t.subscriber.Close()
}
