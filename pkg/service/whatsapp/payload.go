package whatsapp

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

const messagingProduct = "whatsapp"

// messagePayload is the Graph API request body for POST /{phone_number_id}/messages.
// Exactly one of the content fields is set, selected by Type.
type messagePayload struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Document         *documentPayload    `json:"document,omitempty"`
	Template         *templatePayload    `json:"template,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

type textPayload struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type documentPayload struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type interactivePayload struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons []interactiveButton `json:"buttons"`
}

type interactiveButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// readReceiptPayload marks an inbound message as read
type readReceiptPayload struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// sendResponse is the Graph API acknowledgment for an accepted message
type sendResponse struct {
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// statusResponse is the Graph API response for a message status lookup
type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// buildMessagePayload maps an already validated OutboundMessage to its wire
// form. Quick-reply messages share the interactive wire type; the distinction
// only exists on the model side.
func buildMessagePayload(msg *model.OutboundMessage) (*messagePayload, error) {
	payload := &messagePayload{
		MessagingProduct: messagingProduct,
		To:               msg.Recipient,
	}

	switch msg.Kind {
	case types.MessageKindText:
		payload.Type = "text"
		payload.Text = &textPayload{
			Body:       msg.Text.Body,
			PreviewURL: msg.Text.PreviewURL,
		}

	case types.MessageKindDocument:
		payload.Type = "document"
		payload.Document = &documentPayload{
			Link:     msg.Document.URL,
			Filename: msg.Document.Filename,
			Caption:  msg.Document.Caption,
		}

	case types.MessageKindTemplate:
		payload.Type = "template"
		lang := msg.Template.Language
		if lang == "" {
			lang = model.DefaultTemplateLanguage
		}
		tmpl := &templatePayload{
			Name:     msg.Template.Name,
			Language: templateLanguage{Code: lang},
		}
		if len(msg.Template.Params) > 0 {
			params := make([]templateParameter, 0, len(msg.Template.Params))
			for _, p := range msg.Template.Params {
				params = append(params, templateParameter{Type: "text", Text: p})
			}
			tmpl.Components = []templateComponent{
				{Type: "body", Parameters: params},
			}
		}
		payload.Template = tmpl

	case types.MessageKindInteractive, types.MessageKindQuickReply:
		buttons := make([]interactiveButton, 0, len(msg.Interactive.Buttons))
		for _, btn := range msg.Interactive.Buttons {
			buttons = append(buttons, interactiveButton{
				Type:  "reply",
				Reply: buttonReply{ID: btn.ID, Title: btn.Title},
			})
		}
		payload.Type = "interactive"
		payload.Interactive = &interactivePayload{
			Type:   "button",
			Body:   interactiveBody{Text: msg.Interactive.Body},
			Action: interactiveAction{Buttons: buttons},
		}

	default:
		return nil, goerr.New("unsupported message kind",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("kind", msg.Kind))
	}

	return payload, nil
}
