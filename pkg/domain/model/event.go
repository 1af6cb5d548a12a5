package model

import (
	"encoding/json"
	"time"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// InboundEvent is the canonical representation of one webhook notification.
// It is constructed once by normalization and never mutated.
type InboundEvent struct {
	EventType  types.EventType
	MessageID  string // idempotency key, unique per physical message
	FromID     string
	ToID       string
	Content    Content
	Status     types.DeliveryStatus // set for status update events
	ReceivedAt time.Time
}

// ConversationKey identifies the conversation an event belongs to. Events
// sharing a key must be processed in arrival order.
func (x *InboundEvent) ConversationKey() string {
	if x.FromID != "" {
		return x.FromID
	}
	return x.MessageID
}

// Content is the polymorphic payload of an inbound event. Exactly one
// concrete variant backs each event.
type Content interface {
	isContent()
}

// TextContent is a plain text message body
type TextContent struct {
	Body string
}

// DocumentContent is a received file attachment reference
type DocumentContent struct {
	URL      string
	Filename string
}

// InteractiveContent is a button or list selection made by the user
type InteractiveContent struct {
	SelectionID string
	Title       string
}

// UnknownContent preserves an unrecognized payload node for logging.
// Schema drift from the gateway is represented as data, not a failure.
type UnknownContent struct {
	Raw json.RawMessage
}

func (TextContent) isContent()        {}
func (DocumentContent) isContent()    {}
func (InteractiveContent) isContent() {}
func (UnknownContent) isContent()     {}
