package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// InvocationRepository handles invocation-related database operations.
type InvocationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInvocationRepository creates a new invocation repository.
func NewInvocationRepository(db *sql.DB, logger *slog.Logger) *InvocationRepository {
	return &InvocationRepository{db: db, logger: logger}
}

// SaveInvocation upserts the full snapshot in one statement so stack, variables
// and status land atomically.
func (r *InvocationRepository) SaveInvocation(ctx context.Context, invocation *models.Invocation) error {
	stack, err := json.Marshal(invocation.Stack)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to marshal stack: %w", err))
	}

	variables, err := json.Marshal(invocation.Variables)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to marshal variables: %w", err))
	}

	parameters, err := json.Marshal(invocation.Parameters)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to marshal parameters: %w", err))
	}

	query := `
		INSERT INTO invocations (
			id, pipeline_id, user_id, version, status, success,
			stack, variables, parameters, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , success = EXCLUDED.success
		  , stack = EXCLUDED.stack
		  , variables = EXCLUDED.variables
		  , updated_at = EXCLUDED.updated_at
	`

	var success sql.NullBool
	if invocation.Success != nil {
		success = sql.NullBool{Bool: *invocation.Success, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		invocation.ID,
		invocation.PipelineID,
		invocation.UserID,
		invocation.Version,
		invocation.Status,
		success,
		stack,
		variables,
		parameters,
		invocation.CreatedAt,
		invocation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID, err)
	}

	return nil
}

// InvocationByID retrieves an invocation snapshot by its ID.
func (r *InvocationRepository) InvocationByID(ctx context.Context, id string) (*models.Invocation, error) {
	query := `
		SELECT
			id
		  , pipeline_id
		  , user_id
		  , version
		  , status
		  , success
		  , stack
		  , variables
		  , parameters
		  , created_at
		  , updated_at
		FROM invocations
		WHERE id = $1
	`

	invocation, err := r.scanInvocation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInvocationError("InvocationByID", id, persistence.ErrInvocationNotFound)
		}

		return nil, persistence.NewInvocationError("InvocationByID", id, err)
	}

	return invocation, nil
}

// InvocationsByPipeline retrieves all invocation snapshots for a pipeline.
func (r *InvocationRepository) InvocationsByPipeline(ctx context.Context, pipelineID string) ([]*models.Invocation, error) {
	query := `
		SELECT
			id
		  , pipeline_id
		  , user_id
		  , version
		  , status
		  , success
		  , stack
		  , variables
		  , parameters
		  , created_at
		  , updated_at
		FROM invocations
		WHERE pipeline_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	invocations := make([]*models.Invocation, 0)

	for rows.Next() {
		invocation, err := r.scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}

		invocations = append(invocations, invocation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return invocations, nil
}

// DeleteInvocation removes an invocation snapshot; no-op when absent.
func (r *InvocationRepository) DeleteInvocation(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM invocations WHERE id = $1", id)
	if err != nil {
		return persistence.NewInvocationError("DeleteInvocation", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *InvocationRepository) scanInvocation(row rowScanner) (*models.Invocation, error) {
	var (
		invocation models.Invocation
		success    sql.NullBool
		stack      []byte
		variables  []byte
		parameters []byte
	)

	err := row.Scan(
		&invocation.ID,
		&invocation.PipelineID,
		&invocation.UserID,
		&invocation.Version,
		&invocation.Status,
		&success,
		&stack,
		&variables,
		&parameters,
		&invocation.CreatedAt,
		&invocation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if success.Valid {
		invocation.Success = &success.Bool
	}

	if err := json.Unmarshal(stack, &invocation.Stack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stack: %w", err)
	}

	if err := json.Unmarshal(variables, &invocation.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	if err := json.Unmarshal(parameters, &invocation.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return &invocation, nil
}
