// Package whatsapp maps raw gateway webhook payloads to canonical domain
// events. Unrecognized shapes inside a well-formed envelope become Unknown
// events instead of failures, so gateway schema drift never breaks the
// pipeline.
package whatsapp

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// Payload is the webhook envelope delivered by the messaging gateway
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business-account entry of a webhook delivery
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change notification inside an entry
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the message and status nodes of a change
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []Contact         `json:"contacts"`
	Messages         []json.RawMessage `json:"messages"`
	Statuses         []Status          `json:"statuses"`
}

// Metadata identifies the receiving business phone number
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile attached to a message delivery
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Status is a delivery/read receipt for an outbound message
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Message is one inbound message node. Fields beyond the recognized types
// are tolerated and ignored.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Document *struct {
		Link     string `json:"link"`
		URL      string `json:"url"`
		Filename string `json:"filename"`
		MimeType string `json:"mime_type"`
	} `json:"document"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`
}

// ParsePayload normalizes a raw webhook delivery into canonical events.
// It fails with a parse-tagged error only when the payload is not valid JSON
// or contains no message/status node at all; individual nodes that cannot be
// classified are returned as Unknown events.
func ParsePayload(raw []byte) ([]*model.InboundEvent, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal webhook payload",
			goerr.T(types.ErrTagParse))
	}

	var events []*model.InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			events = append(events, normalizeChange(&change.Value)...)
		}
	}

	if len(events) == 0 {
		return nil, goerr.New("no message or status node in webhook payload",
			goerr.T(types.ErrTagParse),
			goerr.V("object", payload.Object))
	}

	return events, nil
}

func normalizeChange(value *ChangeValue) []*model.InboundEvent {
	var events []*model.InboundEvent

	for _, raw := range value.Messages {
		events = append(events, normalizeMessage(raw, &value.Metadata))
	}
	for _, st := range value.Statuses {
		events = append(events, normalizeStatus(&st, &value.Metadata))
	}

	return events
}

func normalizeMessage(raw json.RawMessage, meta *Metadata) *model.InboundEvent {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ID == "" {
		return &model.InboundEvent{
			EventType:  types.EventTypeUnknown,
			Content:    model.UnknownContent{Raw: raw},
			ReceivedAt: time.Now().UTC(),
		}
	}

	ev := &model.InboundEvent{
		EventType:  types.EventTypeMessageReceived,
		MessageID:  msg.ID,
		FromID:     msg.From,
		ToID:       meta.PhoneNumberID,
		ReceivedAt: parseTimestamp(msg.Timestamp),
	}

	switch msg.Type {
	case "text":
		body := ""
		if msg.Text != nil {
			body = msg.Text.Body
		}
		ev.Content = model.TextContent{Body: body}

	case "document":
		content := model.DocumentContent{}
		if msg.Document != nil {
			content.URL = msg.Document.Link
			if content.URL == "" {
				content.URL = msg.Document.URL
			}
			content.Filename = msg.Document.Filename
		}
		ev.Content = content

	case "interactive":
		content := model.InteractiveContent{}
		if msg.Interactive != nil {
			if reply := msg.Interactive.ButtonReply; reply != nil {
				content.SelectionID = reply.ID
				content.Title = reply.Title
			} else if reply := msg.Interactive.ListReply; reply != nil {
				content.SelectionID = reply.ID
				content.Title = reply.Title
			}
		}
		ev.Content = content

	case "button":
		content := model.InteractiveContent{}
		if msg.Button != nil {
			content.SelectionID = msg.Button.Payload
			content.Title = msg.Button.Text
		}
		ev.Content = content

	default:
		ev.Content = model.UnknownContent{Raw: raw}
	}

	return ev
}

func normalizeStatus(st *Status, meta *Metadata) *model.InboundEvent {
	status := types.ParseDeliveryStatus(st.Status)

	eventType := types.EventTypeDeliveryStatusUpdated
	switch status {
	case types.DeliveryStatusRead:
		eventType = types.EventTypeReadStatusUpdated
	case types.DeliveryStatusUnknown:
		eventType = types.EventTypeUnknown
	}

	return &model.InboundEvent{
		EventType:  eventType,
		MessageID:  st.ID,
		FromID:     meta.PhoneNumberID,
		ToID:       st.RecipientID,
		Status:     status,
		ReceivedAt: parseTimestamp(st.Timestamp),
	}
}

// parseTimestamp converts the gateway's unix-seconds string. A missing or
// malformed value falls back to the current time.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Now().UTC()
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
