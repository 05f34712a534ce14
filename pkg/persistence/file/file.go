// Package file provides file-based persistence for pipelines and invocations.
// It is intended for development and tests; every record is one JSON document.
package file

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// Persistence implements the persistence layer on the local file system.
type Persistence struct {
	root           string
	invocationRepo *InvocationRepository
	pipelineRepo   *PipelineRepository
}

// NewPersistence creates a new file-based persistence layer rooted at the given
// directory.
func NewPersistence(root string) *Persistence {
	root = strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:           root,
		invocationRepo: NewInvocationRepository(root),
		pipelineRepo:   NewPipelineRepository(root),
	}
}

func (p *Persistence) InvocationRepository() persistence.InvocationRepository {
	return p.invocationRepo
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

// HealthCheck verifies the root directory is usable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(p.root, 0750)
		}

		return err
	}

	if !info.IsDir() {
		return errors.New("persistence root is not a directory")
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateIdentifier rejects identifiers that are empty or could escape the
// storage root via path traversal.
func validateIdentifier(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("identifier contains invalid characters")
	}

	return nil
}
