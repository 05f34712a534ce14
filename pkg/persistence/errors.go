// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrInvocationNotFound indicates no invocation exists for the given identifier.
	ErrInvocationNotFound = errors.New("invocation not found")

	// ErrPipelineNotFound indicates a pipeline was not found by the given identifier.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineVersionNotFound indicates the pipeline exists but not at the requested version.
	ErrPipelineVersionNotFound = errors.New("pipeline version not found")
)

// InvocationError wraps invocation-related errors with additional context.
type InvocationError struct {
	Op           string // Operation being performed (e.g., "InvocationByID", "SaveInvocation")
	InvocationID string
	Err          error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s operation failed for invocation %s: %v", e.Op, e.InvocationID, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func (e *InvocationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInvocationError creates a new invocation error with context.
func NewInvocationError(op, invocationID string, err error) *InvocationError {
	return &InvocationError{Op: op, InvocationID: invocationID, Err: err}
}

// PipelineError wraps pipeline-related errors with additional context.
type PipelineError struct {
	Op         string
	PipelineID string
	Version    int
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s operation failed for pipeline %s v%d: %v", e.Op, e.PipelineID, e.Version, e.Err)
	}

	return fmt.Sprintf("%s operation failed for pipeline %s: %v", e.Op, e.PipelineID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPipelineError creates a new pipeline error with context.
func NewPipelineError(op, pipelineID string, version int, err error) *PipelineError {
	return &PipelineError{Op: op, PipelineID: pipelineID, Version: version, Err: err}
}

// IsInvocationNotFound checks if an error indicates an invocation was not found.
func IsInvocationNotFound(err error) bool {
	return errors.Is(err, ErrInvocationNotFound)
}

// IsPipelineNotFound checks if an error indicates a pipeline was not found.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}

// IsPipelineVersionNotFound checks if an error indicates a missing pipeline version.
func IsPipelineVersionNotFound(err error) bool {
	return errors.Is(err, ErrPipelineVersionNotFound)
}
