package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const currentSchemaVersion = 1

var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS pipelines (
			id VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(50) NOT NULL,
			entry_nodes JSONB NOT NULL DEFAULT '[]',
			nodes JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (id, version)
		);

		CREATE TABLE IF NOT EXISTS invocations (
			id VARCHAR(255) PRIMARY KEY,
			pipeline_id VARCHAR(255) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL,
			status VARCHAR(50) NOT NULL,
			success BOOLEAN,
			stack JSONB NOT NULL DEFAULT '[]',
			variables JSONB NOT NULL DEFAULT '{}',
			parameters JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_invocations_pipeline_id ON invocations(pipeline_id);
		CREATE INDEX IF NOT EXISTS idx_invocations_status ON invocations(status);
	`,
}

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(logger *slog.Logger, db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db, logger: logger.With("module", "migrations")}
}

// RunMigrations handles database schema creation and updates.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	err := m.createMigrationsTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.currentSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for version := currentVersion + 1; version <= currentSchemaVersion; version++ {
		migration, ok := migrations[version]
		if !ok {
			return fmt.Errorf("missing migration for schema version %d", version)
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		_, err = m.db.ExecContext(ctx, migration)
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		_, err = m.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
	}

	return nil
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)

	return err
}

func (m *MigrationManager) currentSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64

	err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}

	if !version.Valid {
		return 0, nil
	}

	return int(version.Int64), nil
}
