package responder

import (
	"context"

	"github.com/talaria-bot/talaria/pkg/domain/model"
)

// Service turns user messages into replies grounded in retrieved passages,
// and produces the query embeddings the retrieval step needs
type Service interface {
	// Reply generates a reply to the user message. Passages are the search
	// hits to ground the answer in; with no passages the model is told the
	// knowledge base had nothing relevant.
	Reply(ctx context.Context, message string, passages []*model.SearchResult) (string, error)

	// Embed returns the embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)
}
