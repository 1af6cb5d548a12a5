package whatsapp

import (
	"context"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// Service provides access to the WhatsApp Business messaging gateway
type Service interface {
	// Send validates and delivers an outbound message. The returned result
	// carries the gateway-assigned message ID. A non-2xx gateway response
	// is a rejection and must not be retried; a network-level failure is a
	// transport error and may be retried by the caller.
	Send(ctx context.Context, msg *model.OutboundMessage) (*SendResult, error)

	// SendText delivers a plain text message
	SendText(ctx context.Context, recipient, body string, opts ...TextOption) (*SendResult, error)

	// SendDocument delivers a file attachment by link
	SendDocument(ctx context.Context, recipient, url, filename, caption string) (*SendResult, error)

	// SendTemplate delivers a pre-approved template message. An empty
	// language falls back to the default template language.
	SendTemplate(ctx context.Context, recipient, name, language string, params ...string) (*SendResult, error)

	// SendInteractive delivers a message with reply buttons
	SendInteractive(ctx context.Context, recipient, body string, buttons []model.Button) (*SendResult, error)

	// SendQuickReply delivers a quick-reply menu message
	SendQuickReply(ctx context.Context, recipient, body string, buttons []model.Button) (*SendResult, error)

	// MarkAsRead reports a received message as read so the sender sees the
	// read receipt
	MarkAsRead(ctx context.Context, messageID string) error

	// GetMessageStatus fetches the delivery status of a previously sent
	// message
	GetMessageStatus(ctx context.Context, messageID string) (*MessageStatus, error)

	// HealthCheck verifies the gateway account is reachable with the
	// configured credentials
	HealthCheck(ctx context.Context) error
}

// TextOption adjusts a text send
type TextOption func(*model.TextPayload)

// WithPreviewURL enables link previews in the text body
func WithPreviewURL() TextOption {
	return func(p *model.TextPayload) {
		p.PreviewURL = true
	}
}

// SendResult is the gateway acknowledgment of an accepted message
type SendResult struct {
	MessageID string
	Recipient string
}

// MessageStatus is the delivery state the gateway reports for a message
type MessageStatus struct {
	MessageID string
	Status    types.DeliveryStatus
}
