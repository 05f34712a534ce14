// Package httprequest provides an HTTP request node implementation.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

const defaultTimeout = 30 * time.Second

// HTTPRequestNode performs one HTTP request and stores the response into the
// run's variables. Requests are re-issued from scratch on re-entry, so targets
// should be idempotent.
type HTTPRequestNode struct {
	id       string
	method   string
	url      string
	body     string
	resultTo string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPRequestNode creates a new HTTP request node.
func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method := http.MethodGet
	if m, ok := config["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	body, _ := config["body"].(string)

	resultTo, _ := config["result_to"].(string)
	if resultTo == "" {
		resultTo = id + "_response"
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &HTTPRequestNode{
		id:       id,
		method:   method,
		url:      url,
		body:     body,
		resultTo: resultTo,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// ID returns the node ID.
func (n *HTTPRequestNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *HTTPRequestNode) Type() string {
	return "httprequest"
}

// Run issues the request and stores status and decoded body under result_to.
// Network faults and non-2xx statuses are domain failures.
func (n *HTTPRequestNode) Run(ctx context.Context, execCtx *execution.Context, _ models.Frame) (execution.Outcome, error) {
	var requestBody io.Reader
	if n.body != "" {
		requestBody = strings.NewReader(n.body)
	}

	req, err := http.NewRequestWithContext(ctx, n.method, n.url, requestBody)
	if err != nil {
		return execution.Outcome{}, execution.NewDomainError(n.id, fmt.Sprintf("invalid request: %v", err))
	}

	if n.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return execution.Outcome{}, execution.NewDomainError(n.id, fmt.Sprintf("request failed: %v", err))
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return execution.Outcome{}, execution.NewDomainError(n.id, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return execution.Outcome{}, execution.NewDomainError(n.id,
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, n.url))
	}

	var decoded any
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		decoded = string(responseBody)
	}

	execCtx.SetVariable(n.resultTo, map[string]any{
		"status": resp.StatusCode,
		"body":   decoded,
	})

	return execution.Complete(), nil
}
