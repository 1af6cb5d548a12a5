package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

// LLM holds configuration for the language model backend used for
// embeddings and reply generation
type LLM struct {
	provider string

	geminiProject  string
	geminiLocation string

	openaiAPIKey string
}

// Flags returns CLI flags for LLM configuration
func (x *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (gemini or openai)",
			Category:    "LLM",
			Value:       "gemini",
			Sources:     cli.EnvVars("TALARIA_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "LLM",
			Sources:     cli.EnvVars("TALARIA_GEMINI_PROJECT"),
			Destination: &x.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "LLM",
			Value:       "us-central1",
			Sources:     cli.EnvVars("TALARIA_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "LLM",
			Sources:     cli.EnvVars("TALARIA_OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
	}
}

func (x LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", x.provider),
		slog.String("gemini_project", x.geminiProject),
		slog.String("gemini_location", x.geminiLocation),
		slog.Int("openai_api_key.len", len(x.openaiAPIKey)),
	)
}

// Configure creates an LLM client for the configured provider. Returns nil
// without error when the provider's credentials are not set, so callers can
// decide whether the client is required.
func (x *LLM) Configure(ctx context.Context) (gollem.LLMClient, error) {
	switch x.provider {
	case "gemini", "":
		if x.geminiProject == "" {
			return nil, nil
		}
		client, err := gemini.New(ctx, x.geminiProject, x.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	case "openai":
		if x.openaiAPIKey == "" {
			return nil, nil
		}
		client, err := openai.New(ctx, x.openaiAPIKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidProvider, "unsupported LLM provider",
			goerr.V(ProviderKey, x.provider))
	}
}
