// Package execution implements the resumable pipeline execution engine: the
// per-run execution context, the node-by-node state machine that drives it, and
// the resumption-validation protocol.
package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates the requesting user does not own the invocation.
	ErrUnauthorized = errors.New("user does not own invocation")

	// ErrPipelineMismatch indicates the invocation belongs to a different pipeline.
	ErrPipelineMismatch = errors.New("invocation belongs to a different pipeline")

	// ErrVersionMismatch indicates the recorded pipeline version cannot be
	// resolved or no longer matches the node identifiers on the stack.
	ErrVersionMismatch = errors.New("pipeline version incompatible with invocation")

	// ErrChannelUnavailable indicates a send or receive was attempted without an
	// open channel.
	ErrChannelUnavailable = errors.New("channel unavailable")

	// ErrAlreadyBound indicates a rebinding attempt on an already bound context.
	ErrAlreadyBound = errors.New("already bound")
)

// DomainError is an expected node-level business failure. It drives the
// terminal failed transition; any other error leaves the last checkpoint
// untouched so the run remains resumable.
type DomainError struct {
	NodeID  string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %s failed: %s", e.NodeID, e.Message)
	}

	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a node-level business failure.
func NewDomainError(nodeID, message string) *DomainError {
	return &DomainError{NodeID: nodeID, Message: message}
}

// IsDomainError reports whether err is (or wraps) a node-level business failure.
func IsDomainError(err error) bool {
	var domainErr *DomainError

	return errors.As(err, &domainErr)
}
