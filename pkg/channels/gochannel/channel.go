// Package gochannel provides an in-memory duplex channel for tests and
// embedded runs. Both ends share one watermill GoChannel pubsub, so no external
// dependencies are required.
package gochannel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/zigzalgo/pipeworks/pkg/channels"
)

// Pair creates both ends of a duplex stream identified by key. The engine holds
// the server end; the client end simulates the remote peer.
func Pair(ctx context.Context, logger watermill.LoggerAdapter, key string) (*channels.Endpoint, *channels.Endpoint, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          false,
		},
		logger,
	)

	toClient := channels.TopicToClient(key)
	toServer := channels.TopicToServer(key)

	serverInbound, err := pubSub.Subscribe(ctx, toServer)
	if err != nil {
		return nil, nil, err
	}

	clientInbound, err := pubSub.Subscribe(ctx, toClient)
	if err != nil {
		return nil, nil, err
	}

	server := channels.NewEndpoint(pubSub, serverInbound, toClient)
	client := channels.NewEndpoint(pubSub, clientInbound, toServer)

	return server, client, nil
}
