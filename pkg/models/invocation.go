package models

import "time"

// InvocationStatus represents the persisted lifecycle state of an invocation.
// Transitions are forward-monotonic; failed is reachable from any non-terminal
// state and absorbing.
type InvocationStatus string

const (
	InvocationStatusPipelineStarted   InvocationStatus = "pipeline.started"
	InvocationStatusNodeStarted       InvocationStatus = "node.started"
	InvocationStatusNodeCompleted     InvocationStatus = "node.completed"
	InvocationStatusPipelineCompleted InvocationStatus = "pipeline.completed"
	InvocationStatusPipelineFailed    InvocationStatus = "pipeline.failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s InvocationStatus) IsTerminal() bool {
	return s == InvocationStatusPipelineCompleted || s == InvocationStatusPipelineFailed
}

// Frame is one node's activation record on the execution stack.
type Frame struct {
	NodeID string         `json:"node_id" validate:"required"`
	Input  map[string]any `json:"input,omitempty"`
}

// Invocation is the durable record of one run attempt of a pipeline. Stack and
// Variables are always persisted together in a single save, so the record is
// internally consistent as of its last checkpoint.
type Invocation struct {
	ID         string           `json:"id"          validate:"required"`
	PipelineID string           `json:"pipeline_id" validate:"required"`
	UserID     string           `json:"user_id"     validate:"required"`
	Version    int              `json:"version"     validate:"required,min=1"`
	Status     InvocationStatus `json:"status"      validate:"required"`
	Success    *bool            `json:"success,omitempty"`
	Stack      []Frame          `json:"stack"`
	Variables  map[string]any   `json:"variables"`
	Parameters map[string]any   `json:"parameters"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Touch refreshes UpdatedAt, keeping it >= CreatedAt.
func (i *Invocation) Touch() {
	i.UpdatedAt = time.Now().UTC()
	if i.UpdatedAt.Before(i.CreatedAt) {
		i.UpdatedAt = i.CreatedAt
	}
}

// MarkCompleted records the first (and only) terminal success transition.
func (i *Invocation) MarkCompleted() {
	if i.Success != nil {
		return
	}

	success := true
	i.Success = &success
	i.Status = InvocationStatusPipelineCompleted
	i.Touch()
}

// MarkFailed records the terminal failure transition; absorbing.
func (i *Invocation) MarkFailed() {
	if i.Success != nil {
		return
	}

	success := false
	i.Success = &success
	i.Status = InvocationStatusPipelineFailed
	i.Touch()
}
