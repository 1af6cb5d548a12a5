package search

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// client implements Service interface
type client struct {
	documents interfaces.DocumentRepository
}

// New creates a new search service on top of the document repository
func New(documents interfaces.DocumentRepository) (Service, error) {
	if documents == nil {
		return nil, goerr.New("document repository is required")
	}

	return &client{
		documents: documents,
	}, nil
}

func (c *client) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]*model.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, goerr.New("query embedding is required", goerr.T(types.ErrTagInvalidInput))
	}
	if dim := c.documents.Dimension(); len(embedding) != dim {
		return nil, goerr.New("query embedding dimension mismatch",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("expected", dim),
			goerr.V("actual", len(embedding)))
	}
	if topK < 1 {
		return nil, goerr.New("topK must be at least 1",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("topK", topK))
	}
	if threshold < 0 || threshold > 1 {
		return nil, goerr.New("threshold must be between 0 and 1",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("threshold", threshold))
	}

	hits, err := c.documents.Search(ctx, embedding, topK)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed")
	}

	// Backends return raw nearest neighbors; the relevance cut happens here
	// so all backends behave the same.
	results := make([]*model.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			results = append(results, hit)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.CreatedAt.After(results[j].Document.CreatedAt)
	})

	return results, nil
}
