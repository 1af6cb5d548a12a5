package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

func TestOutboundMessage_Validate(t *testing.T) {
	buttons := []model.Button{
		{ID: "opt-1", Title: "First"},
		{ID: "opt-2", Title: "Second"},
	}

	tests := []struct {
		name    string
		msg     *model.OutboundMessage
		wantErr bool
	}{
		{
			name:    "valid text message",
			msg:     model.NewTextMessage("15551234567", "hello"),
			wantErr: false,
		},
		{
			name:    "valid document message",
			msg:     model.NewDocumentMessage("15551234567", "https://example.com/guide.pdf", "guide.pdf", "the guide"),
			wantErr: false,
		},
		{
			name:    "valid template message",
			msg:     model.NewTemplateMessage("15551234567", "order_update", "en", "12345"),
			wantErr: false,
		},
		{
			name:    "valid interactive message",
			msg:     model.NewInteractiveMessage("15551234567", "pick one", buttons),
			wantErr: false,
		},
		{
			name:    "valid quick reply message",
			msg:     model.NewQuickReplyMessage("15551234567", "pick one", buttons),
			wantErr: false,
		},
		{
			name:    "missing recipient",
			msg:     model.NewTextMessage("", "hello"),
			wantErr: true,
		},
		{
			name: "invalid kind",
			msg: &model.OutboundMessage{
				Recipient: "15551234567",
				Kind:      types.MessageKind("sticker"),
			},
			wantErr: true,
		},
		{
			name:    "text without body",
			msg:     model.NewTextMessage("15551234567", ""),
			wantErr: true,
		},
		{
			name: "text kind without payload",
			msg: &model.OutboundMessage{
				Recipient: "15551234567",
				Kind:      types.MessageKindText,
			},
			wantErr: true,
		},
		{
			name:    "document without URL",
			msg:     model.NewDocumentMessage("15551234567", "", "guide.pdf", ""),
			wantErr: true,
		},
		{
			name:    "document without filename",
			msg:     model.NewDocumentMessage("15551234567", "https://example.com/guide.pdf", "", ""),
			wantErr: true,
		},
		{
			name:    "template without name",
			msg:     model.NewTemplateMessage("15551234567", "", "en"),
			wantErr: true,
		},
		{
			name:    "interactive without body",
			msg:     model.NewInteractiveMessage("15551234567", "", buttons),
			wantErr: true,
		},
		{
			name:    "interactive without buttons",
			msg:     model.NewInteractiveMessage("15551234567", "pick one", nil),
			wantErr: true,
		},
		{
			name: "interactive with blank button ID",
			msg: model.NewInteractiveMessage("15551234567", "pick one", []model.Button{
				{ID: "", Title: "First"},
			}),
			wantErr: true,
		},
		{
			name: "quick reply with blank button title",
			msg: model.NewQuickReplyMessage("15551234567", "pick one", []model.Button{
				{ID: "opt-1", Title: ""},
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				gt.Error(t, err)
				gt.B(t, types.IsInvalidInput(err)).True()
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestNewTextMessage(t *testing.T) {
	msg := model.NewTextMessage("15551234567", "hello")

	gt.V(t, msg.Kind).Equal(types.MessageKindText)
	gt.V(t, msg.Recipient).Equal("15551234567")
	gt.V(t, msg.Text).NotNil()
	gt.V(t, msg.Text.Body).Equal("hello")
	gt.V(t, msg.Document).Nil()
	gt.V(t, msg.Interactive).Nil()
}

func TestNewQuickReplyMessage(t *testing.T) {
	msg := model.NewQuickReplyMessage("15551234567", "pick one", []model.Button{
		{ID: "opt-1", Title: "First"},
	})

	gt.V(t, msg.Kind).Equal(types.MessageKindQuickReply)
	gt.V(t, msg.Interactive).NotNil()
	gt.A(t, msg.Interactive.Buttons).Length(1)
}
