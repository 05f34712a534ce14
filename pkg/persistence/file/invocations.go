package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// InvocationRepository handles invocation-related file operations.
type InvocationRepository struct {
	root string
}

// NewInvocationRepository creates a new invocation repository.
func NewInvocationRepository(root string) *InvocationRepository {
	return &InvocationRepository{root: root}
}

func (r *InvocationRepository) dir() string {
	return filepath.Join(r.root, "invocations")
}

// SaveInvocation writes the full snapshot in one file write, keeping stack and
// variables consistent as of this checkpoint.
func (r *InvocationRepository) SaveInvocation(ctx context.Context, invocation *models.Invocation) error {
	if err := validateIdentifier(invocation.ID); err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID, err)
	}

	toSave := *invocation
	if toSave.Stack == nil {
		toSave.Stack = []models.Frame{}
	}

	if toSave.Variables == nil {
		toSave.Variables = make(map[string]any)
	}

	if toSave.Parameters == nil {
		toSave.Parameters = make(map[string]any)
	}

	err := os.MkdirAll(r.dir(), 0750)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to create invocations directory: %w", err))
	}

	data, err := json.Marshal(toSave)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to marshal invocation: %w", err))
	}

	filePath := filepath.Join(r.dir(), invocation.ID+".json")

	err = os.WriteFile(filePath, data, 0600)
	if err != nil {
		return persistence.NewInvocationError("SaveInvocation", invocation.ID,
			fmt.Errorf("failed to write invocation: %w", err))
	}

	return nil
}

// InvocationByID retrieves an invocation snapshot by its ID.
func (r *InvocationRepository) InvocationByID(ctx context.Context, id string) (*models.Invocation, error) {
	if err := validateIdentifier(id); err != nil {
		return nil, persistence.NewInvocationError("InvocationByID", id, err)
	}

	filePath := filepath.Join(r.dir(), id+".json")

	data, err := os.ReadFile(filePath) // #nosec G304 -- id is validated against traversal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewInvocationError("InvocationByID", id, persistence.ErrInvocationNotFound)
		}

		return nil, persistence.NewInvocationError("InvocationByID", id, err)
	}

	var invocation models.Invocation

	err = json.Unmarshal(data, &invocation)
	if err != nil {
		return nil, persistence.NewInvocationError("InvocationByID", id,
			fmt.Errorf("failed to unmarshal invocation: %w", err))
	}

	return &invocation, nil
}

// InvocationsByPipeline retrieves all invocation snapshots for a pipeline.
func (r *InvocationRepository) InvocationsByPipeline(ctx context.Context, pipelineID string) ([]*models.Invocation, error) {
	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Invocation{}, nil
		}

		return nil, fmt.Errorf("failed to read invocations directory: %w", err)
	}

	invocations := make([]*models.Invocation, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		invocation, err := r.InvocationByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip unreadable files
			continue
		}

		if invocation.PipelineID == pipelineID {
			invocations = append(invocations, invocation)
		}
	}

	return invocations, nil
}

// DeleteInvocation removes an invocation snapshot; no-op when absent.
func (r *InvocationRepository) DeleteInvocation(ctx context.Context, id string) error {
	if err := validateIdentifier(id); err != nil {
		return persistence.NewInvocationError("DeleteInvocation", id, err)
	}

	err := os.Remove(filepath.Join(r.dir(), id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewInvocationError("DeleteInvocation", id, err)
	}

	return nil
}
