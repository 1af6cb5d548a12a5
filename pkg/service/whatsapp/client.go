package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
	"github.com/talaria-bot/talaria/pkg/utils/safe"
)

const (
	// DefaultBaseURL is the Graph API endpoint for the WhatsApp Business
	// Platform
	DefaultBaseURL = "https://graph.facebook.com"
	// DefaultAPIVersion is the Graph API version used when none is configured
	DefaultAPIVersion = "v21.0"
	// DefaultTimeout is the HTTP timeout for send requests
	DefaultTimeout = 30 * time.Second
	// DefaultHealthTimeout is the HTTP timeout for health checks
	DefaultHealthTimeout = 10 * time.Second
)

// client implements Service interface
type client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
}

// Option is a functional option for client configuration
type Option func(*client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides the Graph API base URL
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithAPIVersion sets the Graph API version
func WithAPIVersion(version string) Option {
	return func(c *client) {
		c.apiVersion = version
	}
}

// New creates a new WhatsApp gateway service bound to a phone number
func New(accessToken, phoneNumberID string, opts ...Option) (Service, error) {
	if accessToken == "" {
		return nil, goerr.New("WhatsApp access token is required")
	}
	if phoneNumberID == "" {
		return nil, goerr.New("WhatsApp phone number ID is required")
	}

	c := &client{
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		baseURL:       DefaultBaseURL,
		apiVersion:    DefaultAPIVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// phoneURL returns the Graph API URL for the configured phone number node,
// optionally extended by path segments
func (c *client) phoneURL(segments ...string) string {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, c.phoneNumberID)
	for _, seg := range segments {
		url += "/" + seg
	}
	return url
}

// Send validates and delivers an outbound message
func (c *client) Send(ctx context.Context, msg *model.OutboundMessage) (*SendResult, error) {
	if msg == nil {
		return nil, goerr.New("message is required", goerr.T(types.ErrTagInvalidInput))
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	msg = truncateButtons(ctx, msg)

	payload, err := buildMessagePayload(msg)
	if err != nil {
		return nil, err
	}

	var resp sendResponse
	if err := c.post(ctx, c.phoneURL("messages"), payload, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to send message",
			goerr.V("recipient", msg.Recipient),
			goerr.V("kind", msg.Kind))
	}

	result := &SendResult{Recipient: msg.Recipient}
	if len(resp.Messages) > 0 {
		result.MessageID = resp.Messages[0].ID
	}
	if len(resp.Contacts) > 0 && resp.Contacts[0].WaID != "" {
		result.Recipient = resp.Contacts[0].WaID
	}

	logging.From(ctx).Debug("message sent",
		"message_id", result.MessageID,
		"recipient", result.Recipient,
		"kind", msg.Kind)

	return result, nil
}

// SendText delivers a plain text message
func (c *client) SendText(ctx context.Context, recipient, body string, opts ...TextOption) (*SendResult, error) {
	msg := model.NewTextMessage(recipient, body)
	for _, opt := range opts {
		opt(msg.Text)
	}
	return c.Send(ctx, msg)
}

// SendDocument delivers a file attachment by link
func (c *client) SendDocument(ctx context.Context, recipient, url, filename, caption string) (*SendResult, error) {
	return c.Send(ctx, model.NewDocumentMessage(recipient, url, filename, caption))
}

// SendTemplate delivers a pre-approved template message
func (c *client) SendTemplate(ctx context.Context, recipient, name, language string, params ...string) (*SendResult, error) {
	return c.Send(ctx, model.NewTemplateMessage(recipient, name, language, params...))
}

// SendInteractive delivers a message with reply buttons
func (c *client) SendInteractive(ctx context.Context, recipient, body string, buttons []model.Button) (*SendResult, error) {
	return c.Send(ctx, model.NewInteractiveMessage(recipient, body, buttons))
}

// SendQuickReply delivers a quick-reply menu message
func (c *client) SendQuickReply(ctx context.Context, recipient, body string, buttons []model.Button) (*SendResult, error) {
	return c.Send(ctx, model.NewQuickReplyMessage(recipient, body, buttons))
}

// truncateButtons enforces the gateway button limit. The message is copied
// before trimming so the caller's value stays intact.
func truncateButtons(ctx context.Context, msg *model.OutboundMessage) *model.OutboundMessage {
	if msg.Interactive == nil || len(msg.Interactive.Buttons) <= model.MaxButtons {
		return msg
	}

	logging.From(ctx).Warn("too many buttons, truncating",
		"recipient", msg.Recipient,
		"count", len(msg.Interactive.Buttons),
		"max", model.MaxButtons)

	trimmed := *msg
	interactive := *msg.Interactive
	interactive.Buttons = interactive.Buttons[:model.MaxButtons]
	trimmed.Interactive = &interactive
	return &trimmed
}

// MarkAsRead reports a received message as read
func (c *client) MarkAsRead(ctx context.Context, messageID string) error {
	if messageID == "" {
		return goerr.New("message ID is required", goerr.T(types.ErrTagInvalidInput))
	}

	payload := &readReceiptPayload{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        messageID,
	}

	if err := c.post(ctx, c.phoneURL("messages"), payload, nil); err != nil {
		return goerr.Wrap(err, "failed to mark message as read",
			goerr.V("message_id", messageID))
	}

	return nil
}

// GetMessageStatus fetches the delivery status of a sent message
func (c *client) GetMessageStatus(ctx context.Context, messageID string) (*MessageStatus, error) {
	if messageID == "" {
		return nil, goerr.New("message ID is required", goerr.T(types.ErrTagInvalidInput))
	}

	var resp statusResponse
	if err := c.get(ctx, c.phoneURL("messages", messageID), &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get message status",
			goerr.V("message_id", messageID))
	}

	return &MessageStatus{
		MessageID: resp.ID,
		Status:    types.ParseDeliveryStatus(resp.Status),
	}, nil
}

// HealthCheck verifies the phone number node is reachable with the configured
// credentials
func (c *client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultHealthTimeout)
	defer cancel()

	if err := c.get(ctx, c.phoneURL(), nil); err != nil {
		return goerr.Wrap(err, "gateway health check failed")
	}
	return nil
}

func (c *client) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build request")
	}

	return c.do(req, out)
}

// do executes a Graph API request. Network-level failures are tagged as
// transport errors so callers may retry them; any non-2xx response is a
// gateway rejection and is final.
func (c *client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "gateway request failed",
			goerr.T(types.ErrTagTransport),
			goerr.V("url", req.URL.String()))
	}
	defer safe.Close(req.Context(), resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "failed to read gateway response",
			goerr.T(types.ErrTagTransport),
			goerr.V("url", req.URL.String()))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return goerr.New("gateway rejected request",
			goerr.T(types.ErrTagGatewayRejected),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
			goerr.V("url", req.URL.String()))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return goerr.Wrap(err, "failed to decode gateway response",
				goerr.T(types.ErrTagParse),
				goerr.V("body", string(body)))
		}
	}

	return nil
}
