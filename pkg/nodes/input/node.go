// Package input provides a node that waits for an inbound client message.
package input

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/models"
)

// InputNode suspends the run until the client sends a message, then stores the
// message data into a variable. The frame re-runs from its start after every
// wake-up or resume: without a delivered message it prompts and suspends again,
// which makes it safely re-enterable.
type InputNode struct {
	id      string
	prompt  string
	storeTo string
}

// NewInputNode creates a new input node.
func NewInputNode(id string, config map[string]any) (*InputNode, error) {
	prompt, _ := config["prompt"].(string)

	storeTo, _ := config["store_to"].(string)
	if storeTo == "" {
		storeTo = id + "_input"
	}

	return &InputNode{
		id:      id,
		prompt:  prompt,
		storeTo: storeTo,
	}, nil
}

// ID returns the node ID.
func (n *InputNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *InputNode) Type() string {
	return "input"
}

// Run prompts and suspends on first entry; on re-entry with a delivered
// message it stores the data and completes.
func (n *InputNode) Run(ctx context.Context, execCtx *execution.Context, frame models.Frame) (execution.Outcome, error) {
	if delivered, ok := frame.Input["message"]; ok {
		data := delivered
		if msg, isMessage := delivered.(models.Message); isMessage {
			data = msg.Data
		}

		execCtx.SetVariable(n.storeTo, data)

		return execution.Complete(), nil
	}

	if n.prompt != "" {
		err := execCtx.SendEvent(ctx, models.Message{Type: "input.requested", Data: n.prompt})
		if err != nil {
			return execution.Outcome{}, err
		}
	}

	return execution.Suspend(), nil
}
