package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zigzalgo/pipeworks/pkg/mocks"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/persistence/file"
)

func seedInvocation(t *testing.T, store *file.Persistence, id string, status models.InvocationStatus, updatedAt time.Time) {
	t.Helper()

	invocation := &models.Invocation{
		ID:         id,
		PipelineID: "order-flow",
		UserID:     "user-1",
		Version:    1,
		Status:     status,
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
	if status == models.InvocationStatusPipelineCompleted {
		success := true
		invocation.Success = &success
	}

	require.NoError(t, store.InvocationRepository().SaveInvocation(context.Background(), invocation))
}

func TestReaper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	pipeline := validPipeline()
	pipeline.ID = "order-flow"
	pipeline.Version = 1
	pipeline.Status = models.PipelineStatusPublished
	require.NoError(t, store.PipelineRepository().SavePipeline(ctx, pipeline))

	stale := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	seedInvocation(t, store, "stale-waiting", models.InvocationStatusNodeStarted, stale)
	seedInvocation(t, store, "fresh-waiting", models.InvocationStatusNodeStarted, fresh)
	seedInvocation(t, store, "stale-completed", models.InvocationStatusPipelineCompleted, stale)

	reaper := NewReaper(store, 24*time.Hour, slog.Default())
	require.NoError(t, reaper.Sweep(ctx))

	_, err := store.InvocationRepository().InvocationByID(ctx, "stale-waiting")
	assert.True(t, persistence.IsInvocationNotFound(err), "stale non-terminal snapshot should be evicted")

	_, err = store.InvocationRepository().InvocationByID(ctx, "fresh-waiting")
	assert.NoError(t, err, "fresh snapshot must survive")

	_, err = store.InvocationRepository().InvocationByID(ctx, "stale-completed")
	assert.NoError(t, err, "terminal snapshots are never evicted")
}

func TestReaper_SweepWithNothingStale(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	pipeline := validPipeline()
	pipeline.ID = "order-flow"
	pipeline.Version = 1
	pipeline.Status = models.PipelineStatusPublished
	require.NoError(t, store.PipelineRepository().SavePipeline(ctx, pipeline))

	seedInvocation(t, store, "fresh", models.InvocationStatusPipelineStarted, time.Now().UTC())

	reaper := NewReaper(store, time.Hour, slog.Default())
	require.NoError(t, reaper.Sweep(ctx))

	_, err := store.InvocationRepository().InvocationByID(ctx, "fresh")
	assert.NoError(t, err)
}

func TestReaper_SweepPropagatesListError(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.GetMockPipelineRepository().On("Pipelines", mock.Anything).Return(nil, errors.New("backend down"))

	reaper := NewReaper(store, time.Hour, slog.Default())

	err := reaper.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestReaper_SweepContinuesPastDeleteFailure(t *testing.T) {
	stale := time.Now().UTC().Add(-48 * time.Hour)
	invocations := []*models.Invocation{
		{ID: "inv-a", PipelineID: "order-flow", Status: models.InvocationStatusNodeStarted, UpdatedAt: stale},
		{ID: "inv-b", PipelineID: "order-flow", Status: models.InvocationStatusNodeStarted, UpdatedAt: stale},
	}

	store := mocks.NewMockPersistence()
	store.GetMockPipelineRepository().On("Pipelines", mock.Anything).
		Return([]*models.Pipeline{{ID: "order-flow"}}, nil)
	store.GetMockInvocationRepository().On("InvocationsByPipeline", mock.Anything, "order-flow").
		Return(invocations, nil)
	store.GetMockInvocationRepository().On("DeleteInvocation", mock.Anything, "inv-a").
		Return(errors.New("locked"))
	store.GetMockInvocationRepository().On("DeleteInvocation", mock.Anything, "inv-b").
		Return(nil)

	reaper := NewReaper(store, 24*time.Hour, slog.Default())
	require.NoError(t, reaper.Sweep(context.Background()))

	store.GetMockInvocationRepository().AssertCalled(t, "DeleteInvocation", mock.Anything, "inv-b")
}

func TestReaper_StartRejectsBadSchedule(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	reaper := NewReaper(store, time.Hour, slog.Default())

	err := reaper.Start(context.Background(), "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reaper schedule")
}

func TestReaper_StartAndStop(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	reaper := NewReaper(store, time.Hour, slog.Default())

	require.NoError(t, reaper.Start(context.Background(), DefaultReaperSchedule))
	reaper.Stop()

	// Stop without Start is a no-op.
	NewReaper(store, time.Hour, slog.Default()).Stop()
}
