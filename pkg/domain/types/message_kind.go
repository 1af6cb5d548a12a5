package types

import "fmt"

// MessageKind represents the kind of an outbound message
type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindDocument    MessageKind = "document"
	MessageKindTemplate    MessageKind = "template"
	MessageKindInteractive MessageKind = "interactive"
	MessageKindQuickReply  MessageKind = "quick_reply"
)

// AllMessageKinds returns all valid message kinds
func AllMessageKinds() []MessageKind {
	return []MessageKind{
		MessageKindText,
		MessageKindDocument,
		MessageKindTemplate,
		MessageKindInteractive,
		MessageKindQuickReply,
	}
}

// IsValid checks if the message kind is valid
func (k MessageKind) IsValid() bool {
	switch k {
	case MessageKindText,
		MessageKindDocument,
		MessageKindTemplate,
		MessageKindInteractive,
		MessageKindQuickReply:
		return true
	default:
		return false
	}
}

// String returns the string representation of the message kind
func (k MessageKind) String() string {
	return string(k)
}

// ParseMessageKind parses a string into a MessageKind
func ParseMessageKind(s string) (MessageKind, error) {
	kind := MessageKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid message kind: %s", s)
	}
	return kind, nil
}
