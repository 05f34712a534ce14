// Package web provides HTTP request and response types for the pipeline API.
package web

import (
	"time"

	"github.com/zigzalgo/pipeworks/pkg/models"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateNodeRequest describes one node of a pipeline being created.
type CreateNodeRequest struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"    validate:"required"`
	Name    string         `json:"name"    validate:"required,min=1"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}

// CreatePipelineRequest represents the request body for publishing a pipeline
// version. Posting an existing pipeline ID publishes the next version.
type CreatePipelineRequest struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description"`
	EntryNodes  []string            `json:"entry_nodes" validate:"required,min=1"`
	Nodes       []CreateNodeRequest `json:"nodes"       validate:"required,min=1,dive"`
}

// ToPipeline converts the request into a domain pipeline; version and status
// are assigned by the service layer.
func (r CreatePipelineRequest) ToPipeline() *models.Pipeline {
	nodes := make([]*models.PipelineNode, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		nodes = append(nodes, &models.PipelineNode{
			ID:      node.ID,
			Type:    node.Type,
			Name:    node.Name,
			Config:  node.Config,
			Enabled: node.Enabled,
		})
	}

	return &models.Pipeline{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		EntryNodes:  r.EntryNodes,
		Nodes:       nodes,
	}
}

// InvocationResponse represents the externally visible view of an invocation
// snapshot. The stack is reported by depth only; frame inputs stay internal.
type InvocationResponse struct {
	ID         string         `json:"id"`
	PipelineID string         `json:"pipeline_id"`
	UserID     string         `json:"user_id"`
	Version    int            `json:"version"`
	Status     string         `json:"status"`
	Success    *bool          `json:"success,omitempty"`
	StackDepth int            `json:"stack_depth"`
	Variables  map[string]any `json:"variables"`
	Parameters map[string]any `json:"parameters"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TransformInvocationResponse builds the filtered invocation view.
func TransformInvocationResponse(invocation *models.Invocation) InvocationResponse {
	return InvocationResponse{
		ID:         invocation.ID,
		PipelineID: invocation.PipelineID,
		UserID:     invocation.UserID,
		Version:    invocation.Version,
		Status:     string(invocation.Status),
		Success:    invocation.Success,
		StackDepth: len(invocation.Stack),
		Variables:  invocation.Variables,
		Parameters: invocation.Parameters,
		CreatedAt:  invocation.CreatedAt,
		UpdatedAt:  invocation.UpdatedAt,
	}
}
