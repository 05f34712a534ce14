// Package httprequest provides the HTTP request node factory for registry integration.
package httprequest

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// HTTPRequestNodeFactory creates HTTPRequestNode instances.
type HTTPRequestNodeFactory struct{}

// Create creates a new HTTPRequestNode instance.
func (f *HTTPRequestNodeFactory) Create(ctx context.Context, id string, config map[string]any) (execution.Node, error) {
	return NewHTTPRequestNode(id, config)
}

// ID returns the factory ID.
func (f *HTTPRequestNodeFactory) ID() string {
	return "httprequest"
}

// Name returns the factory name.
func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

// Description returns the factory description.
func (f *HTTPRequestNodeFactory) Description() string {
	return "Performs an HTTP request and stores the response into the run's variables"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *HTTPRequestNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL",
				"format":      "uri",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default":     "GET",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body, sent as application/json",
			},
			"result_to": map[string]any{
				"type":        "string",
				"description": "Variable name to store the response under; defaults to '<node id>_response'",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
			},
		},
		"required": []string{"url"},
	}
}

// NewHTTPRequestNodeFactory creates a new factory instance.
func NewHTTPRequestNodeFactory() protocol.NodeFactory {
	return &HTTPRequestNodeFactory{}
}
