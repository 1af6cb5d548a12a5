package responder_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/service/responder"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{
		Texts: []string{"This is a test reply."},
	}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn        func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	if c.generateEmbeddingFn != nil {
		return c.generateEmbeddingFn(ctx, dimension, input)
	}
	return nil, nil
}

func passage(id, text, filename string, score float64) *model.SearchResult {
	meta := map[string]string{model.MetaText: text}
	if filename != "" {
		meta[model.MetaFilename] = filename
	}
	return &model.SearchResult{
		Document: &model.Document{
			ID:       model.DocumentID(id),
			Metadata: meta,
		},
		Score: score,
	}
}

func TestNew(t *testing.T) {
	t.Run("returns error when LLM client is nil", func(t *testing.T) {
		_, err := responder.New(nil, nil)
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service with default profile", func(t *testing.T) {
		svc, err := responder.New(&mockLLMClient{}, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestReply(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the generated reply", func(t *testing.T) {
		var prompt string
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						if text, ok := input[0].(gollem.Text); ok {
							prompt = string(text)
						}
						return &gollem.Response{Texts: []string{"We open at 9 AM."}}, nil
					},
				}, nil
			},
		}

		svc, err := responder.New(llm, nil)
		gt.NoError(t, err).Required()

		passages := []*model.SearchResult{
			passage("doc-1", "Opening hours: 9 AM to 6 PM on weekdays.", "hours.txt", 0.93),
		}

		reply, err := svc.Reply(ctx, "When do you open?", passages)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("We open at 9 AM.")

		gt.String(t, prompt).Contains("When do you open?")
		gt.String(t, prompt).Contains("Opening hours: 9 AM to 6 PM on weekdays.")
		gt.String(t, prompt).Contains("hours.txt")
	})

	t.Run("clamps passages to the configured maximum", func(t *testing.T) {
		var prompt string
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						if text, ok := input[0].(gollem.Text); ok {
							prompt = string(text)
						}
						return &gollem.Response{Texts: []string{"ok"}}, nil
					},
				}, nil
			},
		}

		svc, err := responder.New(llm, nil, responder.WithMaxPassages(2))
		gt.NoError(t, err).Required()

		passages := []*model.SearchResult{
			passage("doc-1", "first passage", "", 0.9),
			passage("doc-2", "second passage", "", 0.8),
			passage("doc-3", "third passage", "", 0.7),
		}

		_, err = svc.Reply(ctx, "question", passages)
		gt.NoError(t, err).Required()

		gt.String(t, prompt).Contains("first passage")
		gt.String(t, prompt).Contains("second passage")
		gt.Bool(t, strings.Contains(prompt, "third passage")).False()
	})

	t.Run("empty message is invalid input", func(t *testing.T) {
		svc, err := responder.New(&mockLLMClient{}, nil)
		gt.NoError(t, err).Required()

		_, err = svc.Reply(ctx, "  ", nil)
		gt.Bool(t, types.IsInvalidInput(err)).True()
	})

	t.Run("empty LLM response is an error", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						return &gollem.Response{}, nil
					},
				}, nil
			},
		}

		svc, err := responder.New(llm, nil)
		gt.NoError(t, err).Required()

		_, err = svc.Reply(ctx, "question", nil)
		gt.Value(t, err).NotNil()
	})
}

func TestBuildReplyPrompt(t *testing.T) {
	t.Run("numbers passages with sources", func(t *testing.T) {
		passages := []*model.SearchResult{
			passage("doc-1", "Opening hours are 9 to 6.", "hours.txt", 0.9),
			passage("doc-2", "Deliveries take two days.", "shipping.txt", 0.8),
		}

		prompt := responder.BuildReplyPrompt("When do you open?", passages)
		gt.String(t, prompt).Contains("When do you open?")
		gt.String(t, prompt).Contains("1. Opening hours are 9 to 6. (source: hours.txt)")
		gt.String(t, prompt).Contains("2. Deliveries take two days. (source: shipping.txt)")
		gt.String(t, prompt).Contains("Answer using the passages above")
	})

	t.Run("falls back to document ID when filename is missing", func(t *testing.T) {
		passages := []*model.SearchResult{
			passage("doc-42", "some text", "", 0.9),
		}

		prompt := responder.BuildReplyPrompt("question", passages)
		gt.String(t, prompt).Contains("(source: doc-42)")
	})

	t.Run("notes when nothing was retrieved", func(t *testing.T) {
		prompt := responder.BuildReplyPrompt("question", nil)
		gt.String(t, prompt).Contains("No relevant passages were found")
	})
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("converts the embedding to float32", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				gt.Value(t, dimension).Equal(4)
				gt.Array(t, input).Length(1)
				return [][]float64{{0.1, 0.2, 0.3, 0.4}}, nil
			},
		}

		svc, err := responder.New(llm, nil, responder.WithDimension(4))
		gt.NoError(t, err).Required()

		embedding, err := svc.Embed(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Array(t, embedding).Length(4)
		gt.Value(t, embedding[0]).Equal(float32(0.1))
	})

	t.Run("truncates over-long input", func(t *testing.T) {
		var captured string
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				captured = input[0]
				return [][]float64{{0.5}}, nil
			},
		}

		svc, err := responder.New(llm, nil, responder.WithDimension(1))
		gt.NoError(t, err).Required()

		_, err = svc.Embed(ctx, strings.Repeat("a", responder.DefaultMaxEmbedChars+500))
		gt.NoError(t, err).Required()
		gt.Number(t, len(captured)).Equal(responder.DefaultMaxEmbedChars)
	})

	t.Run("empty text is invalid input", func(t *testing.T) {
		svc, err := responder.New(&mockLLMClient{}, nil)
		gt.NoError(t, err).Required()

		_, err = svc.Embed(ctx, "   ")
		gt.Bool(t, types.IsInvalidInput(err)).True()
	})
}

func TestResponder_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()

	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := responder.New(llmClient, nil)
	gt.NoError(t, err).Required()

	t.Run("Reply answers from a passage", func(t *testing.T) {
		passages := []*model.SearchResult{
			passage("doc-hours",
				"The store is open Monday through Friday from 9 AM to 6 PM.",
				"hours.txt", 0.95),
		}

		reply, err := svc.Reply(ctx, "What are your opening hours?", passages)
		gt.NoError(t, err).Required()
		gt.String(t, reply).NotEqual("")
		t.Logf("Reply: %s", reply)
	})

	t.Run("Embed returns a vector of the configured dimension", func(t *testing.T) {
		embedding, err := svc.Embed(ctx, "opening hours")
		gt.NoError(t, err).Required()
		gt.Array(t, embedding).Length(model.DefaultEmbeddingDimension)
	})
}
