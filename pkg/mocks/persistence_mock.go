// Package mocks provides testify mocks for the persistence contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// MockInvocationRepository is a mock implementation of persistence.InvocationRepository.
type MockInvocationRepository struct {
	mock.Mock
}

func (m *MockInvocationRepository) SaveInvocation(ctx context.Context, invocation *models.Invocation) error {
	args := m.Called(ctx, invocation)

	return args.Error(0)
}

func (m *MockInvocationRepository) InvocationByID(ctx context.Context, id string) (*models.Invocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Invocation), args.Error(1)
}

func (m *MockInvocationRepository) InvocationsByPipeline(ctx context.Context, pipelineID string) ([]*models.Invocation, error) {
	args := m.Called(ctx, pipelineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Invocation), args.Error(1)
}

func (m *MockInvocationRepository) DeleteInvocation(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPipelineRepository is a mock implementation of persistence.PipelineRepository.
type MockPipelineRepository struct {
	mock.Mock
}

func (m *MockPipelineRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	args := m.Called(ctx, pipeline)

	return args.Error(0)
}

func (m *MockPipelineRepository) PipelineByID(ctx context.Context, id string) (*models.Pipeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Pipeline), args.Error(1)
}

func (m *MockPipelineRepository) PipelineByVersion(ctx context.Context, id string, version int) (*models.Pipeline, error) {
	args := m.Called(ctx, id, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Pipeline), args.Error(1)
}

func (m *MockPipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Pipeline), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock

	invocationRepo *MockInvocationRepository
	pipelineRepo   *MockPipelineRepository
}

// NewMockPersistence creates a MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		invocationRepo: &MockInvocationRepository{},
		pipelineRepo:   &MockPipelineRepository{},
	}
}

// GetMockInvocationRepository returns the underlying mock for setting up expectations.
func (m *MockPersistence) GetMockInvocationRepository() *MockInvocationRepository {
	return m.invocationRepo
}

// GetMockPipelineRepository returns the underlying mock for setting up expectations.
func (m *MockPersistence) GetMockPipelineRepository() *MockPipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) InvocationRepository() persistence.InvocationRepository {
	return m.invocationRepo
}

func (m *MockPersistence) PipelineRepository() persistence.PipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
