// Package emit provides a node that sends a node-defined event to the client.
package emit

import (
	"context"
	"errors"
	"strings"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// EmitNode sends one message over the run's channel. The event type is
// node-defined; the reserved "completed" and "error" types are rejected at
// construction.
type EmitNode struct {
	id        string
	eventType string
	dataFrom  string
	data      any
}

// NewEmitNode creates a new emit node.
func NewEmitNode(id string, config map[string]any) (*EmitNode, error) {
	eventType, ok := config["event"].(string)
	if !ok || eventType == "" {
		return nil, errors.New("missing required field 'event'")
	}

	reserved := strings.EqualFold(eventType, models.MessageTypeCompleted) ||
		strings.EqualFold(eventType, models.MessageTypeError)
	if reserved {
		return nil, errors.New("event type '" + eventType + "' is reserved")
	}

	dataFrom, _ := config["data_from"].(string)

	return &EmitNode{
		id:        id,
		eventType: eventType,
		dataFrom:  dataFrom,
		data:      config["data"],
	}, nil
}

// ID returns the node ID.
func (n *EmitNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *EmitNode) Type() string {
	return "emit"
}

// Run sends the event and completes. Data comes from the configured variable
// when data_from is set, otherwise from the static config value.
func (n *EmitNode) Run(ctx context.Context, execCtx *execution.Context, _ models.Frame) (execution.Outcome, error) {
	data := n.data
	if n.dataFrom != "" {
		if value, ok := execCtx.Variable(n.dataFrom); ok {
			data = value
		}
	}

	err := execCtx.SendEvent(ctx, models.Message{Type: n.eventType, Data: data})
	if err != nil {
		return execution.Outcome{}, err
	}

	return execution.Complete(), nil
}
