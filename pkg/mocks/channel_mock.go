package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// MockChannel is a mock implementation of channels.Channel.
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) State() channels.State {
	args := m.Called()

	return args.Get(0).(channels.State)
}

func (m *MockChannel) Send(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}

func (m *MockChannel) Receive(ctx context.Context) (models.Message, error) {
	args := m.Called(ctx)

	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockChannel) Close() error {
	args := m.Called()

	return args.Error(0)
}
