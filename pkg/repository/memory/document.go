package memory

import (
	"context"
	"math"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/model"
)

type documentRepository struct {
	mu        sync.RWMutex
	docs      map[model.DocumentID]*model.Document
	dimension int
}

func newDocumentRepository(dimension int) *documentRepository {
	return &documentRepository{
		docs:      make(map[model.DocumentID]*model.Document),
		dimension: dimension,
	}
}

// copyDocument creates a deep copy so callers never share mutable state
// with the store
func copyDocument(d *model.Document) *model.Document {
	copied := &model.Document{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
	}

	if d.Embedding != nil {
		copied.Embedding = make([]float32, len(d.Embedding))
		copy(copied.Embedding, d.Embedding)
	}
	if d.Metadata != nil {
		copied.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			copied.Metadata[k] = v
		}
	}

	return copied
}

func (r *documentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	if err := doc.Validate(r.dimension); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyDocument(doc)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.docs[stored.ID] = stored
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.docs[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
	}

	return copyDocument(doc), nil
}

func (r *documentRepository) Delete(ctx context.Context, id model.DocumentID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[id]; !exists {
		return false, nil
	}

	delete(r.docs, id)
	return true, nil
}

func (r *documentRepository) List(ctx context.Context, pattern string, limit int) ([]model.DocumentID, error) {
	if pattern == "" {
		pattern = "*"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []model.DocumentID
	for id := range r.docs {
		matched, err := path.Match(pattern, string(id))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid list pattern", goerr.V("pattern", pattern))
		}
		if matched {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

func (r *documentRepository) CreateIndex(ctx context.Context) error {
	// The in-process index needs no backing structure; creation is always
	// an idempotent success.
	return nil
}

func (r *documentRepository) IndexInfo(ctx context.Context) (*model.IndexInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &model.IndexInfo{
		Name:          model.DefaultIndexName,
		Dimension:     r.dimension,
		DocumentCount: int64(len(r.docs)),
	}, nil
}

func (r *documentRepository) Search(ctx context.Context, embedding []float32, topK int) ([]*model.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*model.SearchResult
	for _, doc := range r.docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		score := cosineSimilarity(embedding, doc.Embedding)
		candidates = append(candidates, &model.SearchResult{
			Document: copyDocument(doc),
			Score:    score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Document.CreatedAt.After(candidates[j].Document.CreatedAt)
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	result := make([]*model.SearchResult, topK)
	copy(result, candidates[:topK])

	return result, nil
}

func (r *documentRepository) Dimension() int {
	return r.dimension
}

// cosineSimilarity returns the clamped cosine similarity in [0, 1].
// Mismatched lengths and zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	score := dot / denom
	if score < 0 {
		return 0
	}
	return score
}
