package search

import (
	"context"

	"github.com/talaria-bot/talaria/pkg/domain/model"
)

// Defaults applied by callers that do not configure search behavior.
const (
	DefaultTopK      = 3
	DefaultThreshold = 0.7
)

// Service defines the interface for semantic document search
type Service interface {
	// Search returns documents similar to the query embedding, most similar
	// first. Hits scoring below threshold are dropped. An empty result is
	// not an error.
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]*model.SearchResult, error)
}
