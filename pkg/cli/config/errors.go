package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrProfileNotFound    = goerr.New("bot profile file not found")
	ErrInvalidProfile     = goerr.New("invalid bot profile")
	ErrMissingButtonID    = goerr.New("menu button ID is required")
	ErrMissingButtonTitle = goerr.New("menu button title is required")
	ErrDuplicateButtonID  = goerr.New("duplicate menu button ID")
	ErrTooManyButtons     = goerr.New("too many menu buttons")
	ErrInvalidLogLevel    = goerr.New("invalid log level")
	ErrInvalidLogFormat   = goerr.New("invalid log format")
	ErrInvalidBackend     = goerr.New("invalid store backend")
	ErrInvalidProvider    = goerr.New("invalid LLM provider")
)

// Context keys for error values
const (
	ProfilePathKey = "profile_path"
	ButtonIDKey    = "button_id"
	ButtonIndexKey = "button_index"
	BackendKey     = "backend"
	ProviderKey    = "provider"
)
