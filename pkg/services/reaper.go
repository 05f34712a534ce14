package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

const DefaultReaperSchedule = "@every 1h"

// Reaper periodically evicts invocation snapshots that sat non-terminal
// longer than the retention window. Eviction deletes the snapshot, which
// makes the run unresumable; terminal snapshots are never touched, they
// remain the record of what happened.
type Reaper struct {
	persistence persistence.Persistence
	retention   time.Duration
	logger      *slog.Logger
	cron        *cron.Cron
	entry       cron.EntryID
}

// NewReaper creates a reaper with the given retention window.
func NewReaper(p persistence.Persistence, retention time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		persistence: p,
		retention:   retention,
		logger:      logger.With("module", "reaper"),
	}
}

// Start schedules sweeps on the given cron expression and runs them until
// Stop is called.
func (r *Reaper) Start(ctx context.Context, schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid reaper schedule '%s': %w", schedule, err)
	}

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entry, err := r.cron.AddFunc(schedule, func() {
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}

	r.entry = entry
	r.cron.Start()
	r.logger.Info("Reaper started", "schedule", schedule, "retention", r.retention)

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("Reaper stopped")
}

// Sweep walks every pipeline's invocations once and deletes the stale
// non-terminal ones.
func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.retention)

	pipelines, err := r.persistence.PipelineRepository().Pipelines(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pipelines: %w", err)
	}

	evicted := 0

	for _, pipeline := range pipelines {
		invocations, err := r.persistence.InvocationRepository().InvocationsByPipeline(ctx, pipeline.ID)
		if err != nil {
			r.logger.Error("Failed to list invocations", "pipeline_id", pipeline.ID, "error", err)

			continue
		}

		for _, invocation := range invocations {
			if invocation.Status.IsTerminal() || !invocation.UpdatedAt.Before(cutoff) {
				continue
			}

			err := r.persistence.InvocationRepository().DeleteInvocation(ctx, invocation.ID)
			if err != nil {
				r.logger.Error("Failed to evict invocation", "invocation_id", invocation.ID, "error", err)

				continue
			}

			r.logger.Info("Evicted stale invocation",
				"invocation_id", invocation.ID,
				"pipeline_id", pipeline.ID,
				"status", invocation.Status,
				"updated_at", invocation.UpdatedAt)

			evicted++
		}
	}

	if evicted > 0 {
		r.logger.Info("Sweep finished", "evicted", evicted)
	}

	return nil
}
