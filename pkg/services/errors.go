// Package services provides run orchestration on top of the execution engine.
package services

import (
	"errors"
)

// Business logic errors that map to client-facing responses.
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPipelineNameRequired = errors.New("pipeline name is required")
	ErrNodesRequired        = errors.New("pipeline must have at least one node")
	ErrEntryNodesRequired   = errors.New("pipeline must have at least one entry node")
	ErrPipelineNil          = errors.New("pipeline cannot be nil")
	ErrUserIDRequired       = errors.New("user ID cannot be empty")

	// Business logic conflicts (409 Conflict).
	ErrRunAlreadyConnected = errors.New("a run is already connected for this identity")
)

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPipelineNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrEntryNodesRequired) ||
		errors.Is(err, ErrPipelineNil) ||
		errors.Is(err, ErrUserIDRequired)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRunAlreadyConnected)
}
