// Package postgresql provides PostgreSQL persistence for pipelines and invocations.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/zigzalgo/pipeworks/pkg/persistence"

	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	invocationRepo *InvocationRepository
	pipelineRepo   *PipelineRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	p := &Persistence{
		db:             database,
		logger:         logger.With("module", "postgresql_persistence"),
		invocationRepo: NewInvocationRepository(database, logger),
		pipelineRepo:   NewPipelineRepository(database, logger),
	}

	err = NewMigrationManager(logger, database).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return p, nil
}

func (p *Persistence) InvocationRepository() persistence.InvocationRepository {
	return p.invocationRepo
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}
