package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

const (
	// DefaultMaxPassages caps how many retrieved passages go into the prompt
	DefaultMaxPassages = 3
	// DefaultMaxEmbedChars caps embedding input length; longer text is
	// truncated with a warning (embedding API limit)
	DefaultMaxEmbedChars = 8000
)

// client implements Service interface
type client struct {
	llmClient     gollem.LLMClient
	profile       *model.BotProfile
	dimension     int
	maxPassages   int
	maxEmbedChars int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithDimension sets the embedding dimension
func WithDimension(dimension int) Option {
	return func(c *client) {
		c.dimension = dimension
	}
}

// WithMaxPassages limits how many passages are injected into the prompt
func WithMaxPassages(n int) Option {
	return func(c *client) {
		c.maxPassages = n
	}
}

// New creates a new responder bound to an LLM client and a bot profile.
// A nil profile falls back to the default profile.
func New(llmClient gollem.LLMClient, profile *model.BotProfile, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if profile == nil {
		profile = model.DefaultBotProfile()
	}

	c := &client{
		llmClient:     llmClient,
		profile:       profile,
		dimension:     model.DefaultEmbeddingDimension,
		maxPassages:   DefaultMaxPassages,
		maxEmbedChars: DefaultMaxEmbedChars,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Reply generates a reply to the user message grounded in the passages
func (c *client) Reply(ctx context.Context, message string, passages []*model.SearchResult) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", goerr.New("message is required", goerr.T(types.ErrTagInvalidInput))
	}

	if len(passages) > c.maxPassages {
		passages = passages[:c.maxPassages]
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(c.profile.Persona),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildReplyPrompt(message, passages)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate reply",
			goerr.V("passages", len(passages)))
	}
	if len(resp.Texts) == 0 || resp.Texts[0] == "" {
		return "", goerr.New("LLM returned an empty reply")
	}

	return resp.Texts[0], nil
}

// buildReplyPrompt assembles the user prompt: the message first, then the
// retrieved passages with their sources, then the grounding instruction
func buildReplyPrompt(message string, passages []*model.SearchResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## User message:\n\n%s\n\n", message)

	if len(passages) == 0 {
		sb.WriteString("No relevant passages were found in the knowledge base. ")
		sb.WriteString("Be clear about what you do not know.\n")
		return sb.String()
	}

	sb.WriteString("## Knowledge base passages:\n\n")
	for i, p := range passages {
		source := p.Document.Metadata[model.MetaFilename]
		if source == "" {
			source = p.Document.ID.String()
		}
		fmt.Fprintf(&sb, "%d. %s (source: %s)\n", i+1, p.Document.Text(), source)
	}

	sb.WriteString("\nAnswer using the passages above. ")
	sb.WriteString("If they do not fully cover the question, say so clearly.\n")

	return sb.String()
}

// Embed returns the embedding vector for the given text
func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.New("text is required", goerr.T(types.ErrTagInvalidInput))
	}

	if runes := []rune(text); len(runes) > c.maxEmbedChars {
		logging.From(ctx).Warn("embedding input truncated",
			"length", len(runes),
			"max", c.maxEmbedChars)
		text = string(runes[:c.maxEmbedChars])
	}

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 {
		return nil, goerr.New("no embedding returned")
	}

	result := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		result[i] = float32(v)
	}

	return result, nil
}
