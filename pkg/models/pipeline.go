// Package models defines the core domain models for pipeline execution.
package models

import "time"

// PipelineStatus represents the lifecycle state of a pipeline definition.
type PipelineStatus string

const (
	PipelineStatusDraft       PipelineStatus = "draft"       // Editable, not executable
	PipelineStatusPublished   PipelineStatus = "published"   // Current active, executable
	PipelineStatusUnpublished PipelineStatus = "unpublished" // Historical, kept for resumption
)

// Pipeline represents one version of a directed pipeline graph. Invocations pin
// the Version they started against so that resumption can reload the exact graph
// their stacked frames reference.
type Pipeline struct {
	ID          string          `json:"id"          validate:"required"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Version     int             `json:"version"     validate:"required,min=1"`
	Status      PipelineStatus  `json:"status"      validate:"required"`
	EntryNodes  []string        `json:"entry_nodes" validate:"required,min=1"`
	Nodes       []*PipelineNode `json:"nodes"       validate:"required,min=1"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PipelineNode represents a node instance in a pipeline graph.
type PipelineNode struct {
	ID      string         `json:"id"      validate:"required"`
	Type    string         `json:"type"    validate:"required"`
	Name    string         `json:"name"    validate:"required,min=1"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}

// NodeByID looks up a node in the graph.
func (p *Pipeline) NodeByID(nodeID string) (*PipelineNode, bool) {
	for _, node := range p.Nodes {
		if node.ID == nodeID {
			return node, true
		}
	}

	return nil, false
}
