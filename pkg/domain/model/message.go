package model

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// MaxButtons is the gateway's hard limit on interactive reply buttons
const MaxButtons = 3

// DefaultTemplateLanguage is applied when a template message omits a language
const DefaultTemplateLanguage = "es"

// Button is one selectable option of an interactive or quick-reply message
type Button struct {
	ID    string
	Title string
}

// TextPayload is the body of a plain text message
type TextPayload struct {
	Body       string
	PreviewURL bool
}

// DocumentPayload is a file attachment sent by link
type DocumentPayload struct {
	URL      string
	Filename string
	Caption  string
}

// TemplatePayload references a pre-approved message template
type TemplatePayload struct {
	Name     string
	Language string
	Params   []string
}

// InteractivePayload is a body with reply buttons; used for both interactive
// and quick-reply kinds
type InteractivePayload struct {
	Body    string
	Buttons []Button
}

// OutboundMessage is a request to send content to a conversation. Kind
// selects which payload field is set; Validate enforces the pairing so a
// malformed request never reaches the network.
type OutboundMessage struct {
	Recipient   string
	Kind        types.MessageKind
	Text        *TextPayload
	Document    *DocumentPayload
	Template    *TemplatePayload
	Interactive *InteractivePayload
}

// NewTextMessage builds a text OutboundMessage
func NewTextMessage(recipient, body string) *OutboundMessage {
	return &OutboundMessage{
		Recipient: recipient,
		Kind:      types.MessageKindText,
		Text:      &TextPayload{Body: body},
	}
}

// NewDocumentMessage builds a document OutboundMessage
func NewDocumentMessage(recipient, url, filename, caption string) *OutboundMessage {
	return &OutboundMessage{
		Recipient: recipient,
		Kind:      types.MessageKindDocument,
		Document:  &DocumentPayload{URL: url, Filename: filename, Caption: caption},
	}
}

// NewTemplateMessage builds a template OutboundMessage
func NewTemplateMessage(recipient, name, language string, params ...string) *OutboundMessage {
	return &OutboundMessage{
		Recipient: recipient,
		Kind:      types.MessageKindTemplate,
		Template:  &TemplatePayload{Name: name, Language: language, Params: params},
	}
}

// NewInteractiveMessage builds an interactive button OutboundMessage
func NewInteractiveMessage(recipient, body string, buttons []Button) *OutboundMessage {
	return &OutboundMessage{
		Recipient:   recipient,
		Kind:        types.MessageKindInteractive,
		Interactive: &InteractivePayload{Body: body, Buttons: buttons},
	}
}

// NewQuickReplyMessage builds a quick-reply OutboundMessage
func NewQuickReplyMessage(recipient, body string, buttons []Button) *OutboundMessage {
	return &OutboundMessage{
		Recipient:   recipient,
		Kind:        types.MessageKindQuickReply,
		Interactive: &InteractivePayload{Body: body, Buttons: buttons},
	}
}

// Validate checks if the message is sendable: non-empty recipient, a valid
// kind, and the kind's primary content present.
func (m *OutboundMessage) Validate() error {
	if m.Recipient == "" {
		return goerr.New("recipient is required", goerr.T(types.ErrTagInvalidInput))
	}
	if !m.Kind.IsValid() {
		return goerr.New("invalid message kind",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("kind", m.Kind))
	}

	switch m.Kind {
	case types.MessageKindText:
		if m.Text == nil || m.Text.Body == "" {
			return goerr.New("text body is required",
				goerr.T(types.ErrTagInvalidInput),
				goerr.V("recipient", m.Recipient))
		}

	case types.MessageKindDocument:
		if m.Document == nil || m.Document.URL == "" || m.Document.Filename == "" {
			return goerr.New("document URL and filename are required",
				goerr.T(types.ErrTagInvalidInput),
				goerr.V("recipient", m.Recipient))
		}

	case types.MessageKindTemplate:
		if m.Template == nil || m.Template.Name == "" {
			return goerr.New("template name is required",
				goerr.T(types.ErrTagInvalidInput),
				goerr.V("recipient", m.Recipient))
		}

	case types.MessageKindInteractive, types.MessageKindQuickReply:
		if m.Interactive == nil || m.Interactive.Body == "" {
			return goerr.New("interactive body is required",
				goerr.T(types.ErrTagInvalidInput),
				goerr.V("recipient", m.Recipient))
		}
		if len(m.Interactive.Buttons) == 0 {
			return goerr.New("at least one button is required",
				goerr.T(types.ErrTagInvalidInput),
				goerr.V("recipient", m.Recipient))
		}
		for _, btn := range m.Interactive.Buttons {
			if btn.ID == "" || btn.Title == "" {
				return goerr.New("button ID and title are required",
					goerr.T(types.ErrTagInvalidInput),
					goerr.V("recipient", m.Recipient),
					goerr.V("button", btn))
			}
		}
	}

	return nil
}
