package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/service/whatsapp"
)

// Gateway holds credentials for the WhatsApp Business Platform
type Gateway struct {
	accessToken   string
	phoneNumberID string
	verifyToken   string
	appSecret     string
	baseURL       string
	apiVersion    string
}

// Flags returns CLI flags for gateway configuration
func (x *Gateway) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "whatsapp-access-token",
			Usage:       "WhatsApp Business API access token",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_ACCESS_TOKEN"),
			Destination: &x.accessToken,
		},
		&cli.StringFlag{
			Name:        "whatsapp-phone-number-id",
			Usage:       "WhatsApp Business phone number ID",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_PHONE_NUMBER_ID"),
			Destination: &x.phoneNumberID,
		},
		&cli.StringFlag{
			Name:        "whatsapp-verify-token",
			Usage:       "Token echoed back during the webhook subscribe handshake",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_VERIFY_TOKEN"),
			Destination: &x.verifyToken,
		},
		&cli.StringFlag{
			Name:        "whatsapp-app-secret",
			Usage:       "App secret for webhook signature verification (empty disables verification)",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_APP_SECRET"),
			Destination: &x.appSecret,
		},
		&cli.StringFlag{
			Name:        "whatsapp-base-url",
			Usage:       "Graph API base URL override (for testing)",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "whatsapp-api-version",
			Usage:       "Graph API version",
			Category:    "WhatsApp",
			Sources:     cli.EnvVars("TALARIA_WHATSAPP_API_VERSION"),
			Destination: &x.apiVersion,
		},
	}
}

func (x Gateway) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("phone_number_id", x.phoneNumberID),
		slog.Int("access_token.len", len(x.accessToken)),
		slog.Int("verify_token.len", len(x.verifyToken)),
		slog.Int("app_secret.len", len(x.appSecret)),
	)
}

// IsConfigured reports whether gateway credentials are present
func (x *Gateway) IsConfigured() bool {
	return x.accessToken != "" && x.phoneNumberID != ""
}

// VerifyToken returns the webhook handshake token
func (x *Gateway) VerifyToken() string {
	return x.verifyToken
}

// AppSecret returns the webhook signature secret
func (x *Gateway) AppSecret() string {
	return x.appSecret
}

// Configure creates a WhatsApp gateway client. Returns nil without error
// when no credentials are configured, so commands that never send messages
// can run without them.
func (x *Gateway) Configure() (whatsapp.Service, error) {
	if x.accessToken == "" && x.phoneNumberID == "" {
		return nil, nil
	}
	if x.accessToken == "" || x.phoneNumberID == "" {
		return nil, goerr.New("whatsapp-access-token and whatsapp-phone-number-id must be set together")
	}

	var opts []whatsapp.Option
	if x.baseURL != "" {
		opts = append(opts, whatsapp.WithBaseURL(x.baseURL))
	}
	if x.apiVersion != "" {
		opts = append(opts, whatsapp.WithAPIVersion(x.apiVersion))
	}

	svc, err := whatsapp.New(x.accessToken, x.phoneNumberID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create WhatsApp gateway client")
	}

	return svc, nil
}
