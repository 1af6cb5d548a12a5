package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/repository/memory"
	"github.com/talaria-bot/talaria/pkg/service/search"
)

const testDimension = 4

func axis(i int) []float32 {
	v := make([]float32, testDimension)
	v[i%testDimension] = 1
	return v
}

func seedDocuments(t *testing.T, repo *memory.Memory) {
	t.Helper()
	ctx := context.Background()

	docs := []*model.Document{
		{
			ID:        "doc-hours",
			Embedding: axis(0),
			Metadata:  map[string]string{model.MetaText: "We open at 9am."},
			CreatedAt: time.Now().Add(-2 * time.Hour).UTC(),
		},
		{
			ID:        "doc-prices",
			Embedding: []float32{0.9, 0.4358899, 0, 0},
			Metadata:  map[string]string{model.MetaText: "Pricing starts at $5."},
			CreatedAt: time.Now().Add(-1 * time.Hour).UTC(),
		},
		{
			ID:        "doc-offtopic",
			Embedding: axis(2),
			Metadata:  map[string]string{model.MetaText: "Unrelated trivia."},
			CreatedAt: time.Now().UTC(),
		},
	}
	for _, doc := range docs {
		gt.NoError(t, repo.Document().Upsert(ctx, doc)).Required()
	}
}

func TestSearch(t *testing.T) {
	repo := memory.New(memory.WithDimension(testDimension))
	seedDocuments(t, repo)

	svc, err := search.New(repo.Document())
	gt.NoError(t, err).Required()

	ctx := context.Background()

	t.Run("returns hits above the threshold, best first", func(t *testing.T) {
		results, err := svc.Search(ctx, axis(0), 3, 0.7)
		gt.NoError(t, err).Required()

		// doc-hours scores 1.0, doc-prices 0.9, doc-offtopic 0.
		gt.Array(t, results).Length(2)
		gt.Value(t, results[0].Document.ID).Equal(model.DocumentID("doc-hours"))
		gt.Value(t, results[1].Document.ID).Equal(model.DocumentID("doc-prices"))
		gt.B(t, results[0].Score > results[1].Score).True()
	})

	t.Run("threshold filters everything when too strict", func(t *testing.T) {
		results, err := svc.Search(ctx, axis(3), 3, 0.7)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(0)
	})

	t.Run("topK bounds the result size", func(t *testing.T) {
		results, err := svc.Search(ctx, axis(0), 1, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].Document.ID).Equal(model.DocumentID("doc-hours"))
	})

	t.Run("zero threshold returns all neighbors", func(t *testing.T) {
		results, err := svc.Search(ctx, axis(0), 3, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(3)
	})
}

func TestSearchValidation(t *testing.T) {
	repo := memory.New(memory.WithDimension(testDimension))
	svc, err := search.New(repo.Document())
	gt.NoError(t, err).Required()

	ctx := context.Background()

	t.Run("rejects empty embedding", func(t *testing.T) {
		_, err := svc.Search(ctx, nil, 3, 0.7)
		gt.Value(t, err).NotNil()
		gt.B(t, types.IsInvalidInput(err)).True()
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		_, err := svc.Search(ctx, make([]float32, testDimension+1), 3, 0.7)
		gt.Value(t, err).NotNil()
		gt.B(t, types.IsInvalidInput(err)).True()
	})

	t.Run("rejects non-positive topK", func(t *testing.T) {
		_, err := svc.Search(ctx, axis(0), 0, 0.7)
		gt.Value(t, err).NotNil()
		gt.B(t, types.IsInvalidInput(err)).True()
	})

	t.Run("rejects out-of-range threshold", func(t *testing.T) {
		_, err := svc.Search(ctx, axis(0), 3, 1.5)
		gt.Value(t, err).NotNil()
		gt.B(t, types.IsInvalidInput(err)).True()

		_, err = svc.Search(ctx, axis(0), 3, -0.1)
		gt.Value(t, err).NotNil()
		gt.B(t, types.IsInvalidInput(err)).True()
	})
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := search.New(nil)
	gt.Value(t, err).NotNil()
}
