package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// DefaultEmbeddingDimension is the embedding vector dimension used unless an
// index is configured otherwise. OpenAI text-embedding models default to 1536.
const DefaultEmbeddingDimension = 1536

// DefaultIndexName is the vector index documents are registered to
const DefaultIndexName = "document_embeddings"

// DocumentID is the identifier of a stored document
type DocumentID string

// NewDocumentID generates a new UUID v4 DocumentID
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New().String())
}

// String returns the string representation of the DocumentID
func (d DocumentID) String() string {
	return string(d)
}

// Document is a unit of retrievable knowledge. Metadata carries the text body
// and provenance fields (filename, content type, upload timestamp) as strings.
type Document struct {
	ID        DocumentID
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
}

// Common metadata keys. Values beyond these are stored as-is.
const (
	MetaText        = "text"
	MetaFilename    = "filename"
	MetaContentType = "content_type"
	MetaUploadedAt  = "uploaded_at"
)

// Validate checks if the document is writable: a non-empty ID and an
// embedding of exactly the index dimension.
func (d *Document) Validate(dimension int) error {
	if d.ID == "" {
		return goerr.New("document ID is required", goerr.T(types.ErrTagInvalidInput))
	}
	if len(d.Embedding) == 0 {
		return goerr.New("document embedding is required",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("id", d.ID))
	}
	if len(d.Embedding) != dimension {
		return goerr.New("document embedding dimension mismatch",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("id", d.ID),
			goerr.V("expected", dimension),
			goerr.V("actual", len(d.Embedding)))
	}
	return nil
}

// Text returns the document body text from metadata
func (d *Document) Text() string {
	return d.Metadata[MetaText]
}

// SearchResult pairs a document with its similarity score against a query
// embedding. Scores are cosine similarities in [0, 1].
type SearchResult struct {
	Document *Document
	Score    float64
}

// IndexInfo describes a vector index and its backing data
type IndexInfo struct {
	Name          string
	Dimension     int
	DocumentCount int64
}
