package interfaces

import (
	"context"

	"github.com/talaria-bot/talaria/pkg/domain/model"
)

// DocumentRepository defines the interface for Document data persistence and
// vector search
type DocumentRepository interface {
	// Upsert writes a document, replacing any existing record with the same ID
	Upsert(ctx context.Context, doc *model.Document) error

	// Get retrieves a document by ID. A missing document is signaled with the
	// backend package's ErrNotFound sentinel.
	Get(ctx context.Context, id model.DocumentID) (*model.Document, error)

	// Delete removes a document by ID and reports whether a record existed
	Delete(ctx context.Context, id model.DocumentID) (bool, error)

	// List returns up to limit document IDs matching a glob-style pattern.
	// It keeps scanning across backend pagination boundaries until the limit
	// is reached or the backend is exhausted.
	List(ctx context.Context, pattern string, limit int) ([]model.DocumentID, error)

	// CreateIndex ensures the vector index exists. Creating an index that
	// already exists is a no-op success.
	CreateIndex(ctx context.Context) error

	// IndexInfo returns the index description with a derived document count
	IndexInfo(ctx context.Context) (*model.IndexInfo, error)

	// Search returns up to topK documents nearest to the query embedding,
	// scored by cosine similarity in [0, 1]. No matches is an empty slice,
	// not an error.
	Search(ctx context.Context, embedding []float32, topK int) ([]*model.SearchResult, error)

	// Dimension returns the embedding dimension the index was configured with
	Dimension() int
}
