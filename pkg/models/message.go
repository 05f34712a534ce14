package models

// Reserved outbound message types. Any other type is node-defined.
const (
	MessageTypeCompleted = "completed"
	MessageTypeError     = "error"
)

// Message is one unit exchanged over a client channel, in either direction.
type Message struct {
	Type string `json:"type" validate:"required"`
	Data any    `json:"data,omitempty"`
}
