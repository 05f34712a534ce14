package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zigzalgo/pipeworks/pkg/channels"
	"github.com/zigzalgo/pipeworks/pkg/models"
	"github.com/zigzalgo/pipeworks/pkg/persistence"
)

// Context owns one run's mutable state: the execution stack, variables and
// parameters, plus optional bindings to a client channel and to persistence.
// Every operation serializes through one guard so the executor goroutine and a
// concurrently listening channel goroutine never observe partial mutations; no
// raw stack or map reference escapes to a second owner. Channel I/O itself runs
// on a reference captured under the guard, outside it, since channels are
// internally synchronized and Receive blocks.
type Context struct {
	mu sync.Mutex

	invocation *models.Invocation
	stack      []models.Frame
	variables  map[string]any
	parameters map[string]any

	channel channels.Channel
	store   persistence.InvocationRepository
}

// NewContext creates a context owning the given invocation record. Stack,
// variables and parameters are copied out of the record.
func NewContext(invocation *models.Invocation) *Context {
	c := &Context{invocation: invocation}
	c.ReplaceStack(invocation.Stack)
	c.ReplaceVariables(invocation.Variables)
	c.ReplaceParameters(invocation.Parameters)

	return c
}

// Variable returns the variable for key. ok distinguishes an absent key from a
// stored nil value.
func (c *Context) Variable(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.variables[key]

	return value, ok
}

// Parameter returns the parameter for key; parameters are fixed at start or
// resume and read-only to node execution.
func (c *Context) Parameter(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.parameters[key]

	return value, ok
}

// SetVariable upserts; visible to subsequent reads and to the next checkpoint.
func (c *Context) SetVariable(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.variables == nil {
		c.variables = make(map[string]any)
	}

	c.variables[key] = value
}

// PushFrame appends to the stack.
func (c *Context) PushFrame(frame models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stack = append(c.stack, frame)
}

// PopFrame removes and returns the most recently pushed frame. An empty stack
// is a normal signal that the run has no more work: ok is false and no error is
// raised.
func (c *Context) PopFrame() (models.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.stack) == 0 {
		return models.Frame{}, false
	}

	frame := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	return frame, true
}

// StackDepth returns the number of pending frames.
func (c *Context) StackDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.stack)
}

// ReplaceStack installs a new stack snapshot. The context takes a defensive
// copy so later mutation of the caller's slice cannot alter context state.
func (c *Context) ReplaceStack(frames []models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stack = make([]models.Frame, len(frames))
	copy(c.stack, frames)
}

// ReplaceVariables installs a new variables snapshot, defensively copied.
func (c *Context) ReplaceVariables(variables map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.variables = copyMap(variables)
}

// ReplaceParameters installs a new parameters snapshot, defensively copied.
func (c *Context) ReplaceParameters(parameters map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.parameters = copyMap(parameters)
}

// BindChannel attaches the client channel; rebinding is rejected.
func (c *Context) BindChannel(channel channels.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		return fmt.Errorf("channel: %w", ErrAlreadyBound)
	}

	c.channel = channel

	return nil
}

// BindPersistence attaches the invocation store; rebinding is rejected.
func (c *Context) BindPersistence(store persistence.InvocationRepository) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return fmt.Errorf("persistence: %w", ErrAlreadyBound)
	}

	c.store = store

	return nil
}

// SendEvent delivers one message over the bound channel in program order.
func (c *Context) SendEvent(ctx context.Context, msg models.Message) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	if channel == nil || channel.State() != channels.StateOpen {
		return ErrChannelUnavailable
	}

	err := channel.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, channels.ErrChannelClosed) {
			return ErrChannelUnavailable
		}

		return err
	}

	return nil
}

// AwaitInboundMessage suspends the calling goroutine until the next inbound
// message or channel closure.
func (c *Context) AwaitInboundMessage(ctx context.Context) (models.Message, error) {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	if channel == nil || channel.State() != channels.StateOpen {
		return models.Message{}, ErrChannelUnavailable
	}

	msg, err := channel.Receive(ctx)
	if err != nil {
		if errors.Is(err, channels.ErrChannelClosed) {
			return models.Message{}, ErrChannelUnavailable
		}

		return models.Message{}, err
	}

	return msg, nil
}

// Snapshot returns copies of the current stack and variables.
func (c *Context) Snapshot() ([]models.Frame, map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stack := make([]models.Frame, len(c.stack))
	copy(stack, c.stack)

	return stack, copyMap(c.variables)
}

// Invocation returns a copy of the record as of the last checkpoint.
func (c *Context) Invocation() models.Invocation {
	c.mu.Lock()
	defer c.mu.Unlock()

	return *c.invocation
}

// Checkpoint persists stack, variables, the given status and a refreshed
// UpdatedAt as one atomic snapshot. Terminal statuses are absorbing: once the
// record is terminal no further checkpoint changes it.
func (c *Context) Checkpoint(ctx context.Context, status models.InvocationStatus) error {
	c.mu.Lock()

	if c.store == nil {
		c.mu.Unlock()

		return errors.New("persistence not bound")
	}

	if c.invocation.Status.IsTerminal() {
		c.mu.Unlock()

		return nil
	}

	c.invocation.Stack = make([]models.Frame, len(c.stack))
	copy(c.invocation.Stack, c.stack)
	c.invocation.Variables = copyMap(c.variables)

	switch status {
	case models.InvocationStatusPipelineCompleted:
		c.invocation.MarkCompleted()
	case models.InvocationStatusPipelineFailed:
		c.invocation.MarkFailed()
	default:
		c.invocation.Status = status
		c.invocation.Touch()
	}

	record := *c.invocation
	store := c.store
	c.mu.Unlock()

	return store.SaveInvocation(ctx, &record)
}

func copyMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		target[key] = value
	}

	return target
}
