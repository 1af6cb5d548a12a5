package firestore

import (
	"context"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// distanceField is where FindNearest writes the cosine distance of each hit.
const distanceField = "vector_distance"

// documentDoc is the Firestore representation of model.Document. Embedding
// is stored as firestore.Vector32 so that FindNearest vector search works.
type documentDoc struct {
	ID        string             `firestore:"ID"`
	Embedding firestore.Vector32 `firestore:"Embedding"`
	Metadata  map[string]string  `firestore:"Metadata,omitempty"`
	CreatedAt time.Time          `firestore:"CreatedAt"`
}

func toDocumentDoc(d *model.Document) *documentDoc {
	return &documentDoc{
		ID:        string(d.ID),
		Embedding: firestore.Vector32(d.Embedding),
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
}

func fromDocumentDoc(d *documentDoc) *model.Document {
	doc := &model.Document{
		ID:        model.DocumentID(d.ID),
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Embedding) > 0 {
		doc.Embedding = []float32(d.Embedding)
	}
	return doc
}

func snapshotToDocument(snap *firestore.DocumentSnapshot) (*model.Document, error) {
	var d documentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return fromDocumentDoc(&d), nil
}

type documentRepository struct {
	client           *firestore.Client
	collectionPrefix string
	dimension        int
}

func newDocumentRepository(client *firestore.Client, dimension int) *documentRepository {
	return &documentRepository{
		client:    client,
		dimension: dimension,
	}
}

func (r *documentRepository) documentsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_documents"
	}
	return "documents"
}

func (r *documentRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.documentsCollection())
}

func (r *documentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	if err := doc.Validate(r.dimension); err != nil {
		return err
	}

	stored := toDocumentDoc(doc)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(stored.ID).Set(ctx, stored); err != nil {
		return goerr.Wrap(err, "failed to store document",
			goerr.T(types.ErrTagBackend),
			goerr.V("id", doc.ID))
	}

	return nil
}

func (r *documentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	snap, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document",
			goerr.T(types.ErrTagBackend),
			goerr.V("id", id))
	}

	doc, err := snapshotToDocument(snap)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document",
			goerr.T(types.ErrTagBackend),
			goerr.V("id", id))
	}

	return doc, nil
}

func (r *documentRepository) Delete(ctx context.Context, id model.DocumentID) (bool, error) {
	docRef := r.collection().Doc(string(id))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get document",
			goerr.T(types.ErrTagBackend),
			goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete document",
			goerr.T(types.ErrTagBackend),
			goerr.V("id", id))
	}

	return true, nil
}

func (r *documentRepository) List(ctx context.Context, pattern string, limit int) ([]model.DocumentID, error) {
	if pattern == "" {
		pattern = "*"
	}

	query := r.collection().Query.OrderBy(firestore.DocumentID, firestore.Asc)

	// Firestore cannot match globs server-side. Narrow by the literal
	// prefix of the pattern and filter the remainder client-side.
	if prefix := literalPrefix(pattern); prefix != "" {
		query = query.StartAt(prefix).EndBefore(prefix + "\uf8ff")
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var ids []model.DocumentID
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents",
				goerr.T(types.ErrTagBackend),
				goerr.V("pattern", pattern))
		}

		matched, err := path.Match(pattern, snap.Ref.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid list pattern", goerr.V("pattern", pattern))
		}
		if !matched {
			continue
		}

		ids = append(ids, model.DocumentID(snap.Ref.ID))
		if limit > 0 && len(ids) >= limit {
			break
		}
	}

	return ids, nil
}

// literalPrefix returns the leading part of a glob pattern before the first
// metacharacter.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func (r *documentRepository) CreateIndex(ctx context.Context) error {
	// Vector indexes are managed through the migrate command; the
	// collection itself needs no provisioning.
	return nil
}

func (r *documentRepository) IndexInfo(ctx context.Context) (*model.IndexInfo, error) {
	aggr, err := r.collection().NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count documents", goerr.T(types.ErrTagBackend))
	}

	value, ok := aggr["count"]
	if !ok {
		return nil, goerr.New("aggregation result has no count", goerr.T(types.ErrTagBackend))
	}
	countValue, ok := value.(*firestorepb.Value)
	if !ok {
		return nil, goerr.New("unexpected aggregation value type", goerr.T(types.ErrTagBackend))
	}

	return &model.IndexInfo{
		Name:          r.documentsCollection(),
		Dimension:     r.dimension,
		DocumentCount: countValue.GetIntegerValue(),
	}, nil
}

func (r *documentRepository) Search(ctx context.Context, embedding []float32, topK int) ([]*model.SearchResult, error) {
	vq := r.collection().FindNearest("Embedding", firestore.Vector32(embedding), topK,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := make([]*model.SearchResult, 0, topK)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "vector search failed", goerr.T(types.ErrTagBackend))
		}

		doc, err := snapshotToDocument(snap)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal search hit",
				goerr.T(types.ErrTagBackend),
				goerr.V("id", snap.Ref.ID))
		}

		distance, ok := snap.Data()[distanceField].(float64)
		if !ok {
			return nil, goerr.New("search hit is missing a distance",
				goerr.T(types.ErrTagBackend),
				goerr.V("id", snap.Ref.ID))
		}

		results = append(results, &model.SearchResult{
			Document: doc,
			Score:    similarityFromDistance(distance),
		})
	}

	return results, nil
}

func (r *documentRepository) Dimension() int {
	return r.dimension
}

// similarityFromDistance converts a cosine distance into a similarity score
// clamped to [0, 1].
func similarityFromDistance(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
