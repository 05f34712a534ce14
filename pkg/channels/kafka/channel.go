// Package kafka provides a Kafka-backed duplex channel for remote clients.
package kafka

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/zigzalgo/pipeworks/pkg/channels"
)

// CreateTransport creates the Kafka publisher and subscriber shared by all
// channels of one engine process. Brokers come from KAFKA_BROKERS.
func CreateTransport(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, nil, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         "cg-" + serviceName,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

// Open creates the engine side of a duplex channel for the given client key.
// Outbound events go to the .out topic, inbound client messages arrive on .in.
func Open(ctx context.Context, publisher *kafka.Publisher, subscriber *kafka.Subscriber, key string) (*channels.Endpoint, error) {
	toClient := channels.TopicToClient(key)
	toServer := channels.TopicToServer(key)

	inbound, err := subscriber.Subscribe(ctx, toServer)
	if err != nil {
		return nil, err
	}

	return channels.NewEndpoint(publisher, inbound, toClient), nil
}
