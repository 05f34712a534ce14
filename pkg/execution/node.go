package execution

import (
	"context"

	"github.com/zigzalgo/pipeworks/pkg/models"
)

// OutcomeKind tags the result of running one frame's node behavior.
type OutcomeKind string

const (
	// OutcomeContinue pushes zero or more child frames and proceeds.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeComplete finishes the frame with nothing pushed.
	OutcomeComplete OutcomeKind = "complete"
	// OutcomeSuspend keeps the frame on the stack and waits for an inbound
	// message before re-running it from its start.
	OutcomeSuspend OutcomeKind = "suspend"
)

// Outcome is the tagged result of one node execution. Failure is not an
// outcome; nodes report business failures by returning a *DomainError.
type Outcome struct {
	Kind     OutcomeKind
	Children []models.Frame
}

// Continue returns an outcome pushing the given child frames in order; the
// first child runs next.
func Continue(children ...models.Frame) Outcome {
	return Outcome{Kind: OutcomeContinue, Children: children}
}

// Complete returns the frame-finished outcome.
func Complete() Outcome {
	return Outcome{Kind: OutcomeComplete}
}

// Suspend returns the waiting-for-input outcome.
func Suspend() Outcome {
	return Outcome{Kind: OutcomeSuspend}
}

// Node is one behavior from the closed node set. Run must be safely
// re-enterable from its start: after a suspension or a resume the same frame is
// executed again from scratch.
type Node interface {
	ID() string
	Type() string
	Run(ctx context.Context, execution *Context, frame models.Frame) (Outcome, error)
}

// NodeBuilder constructs node behaviors by type. Satisfied by the node
// registry.
type NodeBuilder interface {
	CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (Node, error)
}
