package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// Reserved hash fields. Everything else in a document hash is metadata.
const (
	fieldDocumentID = "document_id"
	fieldEmbedding  = "embedding"
	fieldCreatedAt  = "created_at"
	fieldDistance   = "vector_distance"
)

// scanCount is the page size for SCAN when listing documents.
const scanCount = 50

type documentRepository struct {
	client      *redis.Client
	keyPrefix   string
	indexName   string
	dimension   int
	documentTTL time.Duration
}

func newDocumentRepository(client *redis.Client, cfg *config) *documentRepository {
	return &documentRepository{
		client:      client,
		keyPrefix:   cfg.keyPrefix,
		indexName:   cfg.indexName,
		dimension:   cfg.dimension,
		documentTTL: cfg.documentTTL,
	}
}

func (r *documentRepository) key(id model.DocumentID) string {
	return r.keyPrefix + string(id)
}

func (r *documentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	if err := doc.Validate(r.dimension); err != nil {
		return err
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	fields := make(map[string]interface{}, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		fields[k] = v
	}
	fields[fieldDocumentID] = string(doc.ID)
	fields[fieldEmbedding] = encodeVector(doc.Embedding)
	fields[fieldCreatedAt] = createdAt.Format(time.RFC3339Nano)

	key := r.key(doc.ID)

	// Delete-then-set in one transaction so an upsert replaces the whole
	// document rather than merging into stale fields.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if r.documentTTL > 0 {
			pipe.Expire(ctx, key, r.documentTTL)
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to store document",
			goerr.T(types.ErrTagBackend),
			goerr.V("key", key))
	}

	return nil
}

func (r *documentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	key := r.key(id)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get document",
			goerr.T(types.ErrTagBackend),
			goerr.V("key", key))
	}
	if len(fields) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
	}

	doc, err := decodeDocument(id, fields)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode document",
			goerr.T(types.ErrTagBackend),
			goerr.V("key", key))
	}

	return doc, nil
}

func (r *documentRepository) Delete(ctx context.Context, id model.DocumentID) (bool, error) {
	key := r.key(id)

	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete document",
			goerr.T(types.ErrTagBackend),
			goerr.V("key", key))
	}

	return removed > 0, nil
}

func (r *documentRepository) List(ctx context.Context, pattern string, limit int) ([]model.DocumentID, error) {
	if pattern == "" {
		pattern = "*"
	}
	match := r.keyPrefix + pattern

	var ids []model.DocumentID
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan documents",
				goerr.T(types.ErrTagBackend),
				goerr.V("match", match))
		}

		for _, key := range keys {
			ids = append(ids, model.DocumentID(strings.TrimPrefix(key, r.keyPrefix)))
		}

		cursor = next
		if cursor == 0 || (limit > 0 && len(ids) >= limit) {
			break
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *documentRepository) CreateIndex(ctx context.Context) error {
	// Probe first so repeated calls are cheap no-ops.
	if _, err := r.client.FTInfo(ctx, r.indexName).Result(); err == nil {
		return nil
	}

	options := &redis.FTCreateOptions{
		OnHash: true,
		Prefix: []interface{}{r.keyPrefix},
	}
	schema := []*redis.FieldSchema{
		{FieldName: fieldDocumentID, FieldType: redis.SearchFieldTypeText, Weight: 1.0},
		{FieldName: model.MetaText, FieldType: redis.SearchFieldTypeText, Weight: 0.8},
		{FieldName: model.MetaFilename, FieldType: redis.SearchFieldTypeText, Weight: 0.6},
		{FieldName: model.MetaContentType, FieldType: redis.SearchFieldTypeText, Weight: 0.4},
		{
			FieldName: fieldEmbedding,
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            r.dimension,
					DistanceMetric: "COSINE",
				},
			},
		},
	}

	if err := r.client.FTCreate(ctx, r.indexName, options, schema...).Err(); err != nil {
		// Lost the creation race against another instance.
		if strings.Contains(err.Error(), "Index already exists") {
			return nil
		}
		return goerr.Wrap(err, "failed to create search index",
			goerr.T(types.ErrTagBackend),
			goerr.V("index", r.indexName))
	}

	return nil
}

func (r *documentRepository) IndexInfo(ctx context.Context) (*model.IndexInfo, error) {
	info, err := r.client.FTInfo(ctx, r.indexName).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get index info",
			goerr.T(types.ErrTagBackend),
			goerr.V("index", r.indexName))
	}

	return &model.IndexInfo{
		Name:          r.indexName,
		Dimension:     r.dimension,
		DocumentCount: int64(info.NumDocs),
	}, nil
}

func (r *documentRepository) Search(ctx context.Context, embedding []float32, topK int) ([]*model.SearchResult, error) {
	query := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", topK, fieldEmbedding, fieldDistance)
	options := &redis.FTSearchOptions{
		DialectVersion: 2,
		Params: map[string]interface{}{
			"vec": encodeVector(embedding),
		},
		SortBy: []redis.FTSearchSortBy{{FieldName: fieldDistance, Asc: true}},
		Limit:  topK,
	}

	res, err := r.client.FTSearchWithArgs(ctx, r.indexName, query, options).Result()
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed",
			goerr.T(types.ErrTagBackend),
			goerr.V("index", r.indexName))
	}

	results := make([]*model.SearchResult, 0, len(res.Docs))
	for _, hit := range res.Docs {
		id := model.DocumentID(strings.TrimPrefix(hit.ID, r.keyPrefix))

		doc, err := decodeDocument(id, hit.Fields)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode search hit",
				goerr.T(types.ErrTagBackend),
				goerr.V("key", hit.ID))
		}

		distance, err := strconv.ParseFloat(hit.Fields[fieldDistance], 64)
		if err != nil {
			return nil, goerr.Wrap(err, "search hit is missing a distance",
				goerr.T(types.ErrTagBackend),
				goerr.V("key", hit.ID))
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

// encodeVector serializes an embedding as the little-endian FLOAT32 blob
// RediSearch expects for vector fields.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw string) ([]float32, error) {
	b := []byte(raw)
	if len(b)%4 != 0 {
		return nil, goerr.New("malformed embedding blob", goerr.V("bytes", len(b)))
	}

	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

func decodeDocument(id model.DocumentID, fields map[string]string) (*model.Document, error) {
	doc := &model.Document{
		ID:       id,
		Metadata: make(map[string]string),
	}

	for k, v := range fields {
		switch k {
		case fieldDocumentID:
			// The hash key is authoritative for the ID.
		case fieldDistance:
			// KNN result alias, not document data.
		case fieldEmbedding:
			emb, err := decodeVector(v)
			if err != nil {
				return nil, err
			}
			doc.Embedding = emb
		case fieldCreatedAt:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, goerr.Wrap(err, "malformed created_at", goerr.V("value", v))
			}
			doc.CreatedAt = t
		default:
			doc.Metadata[k] = v
		}
	}

	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}

	return doc, nil
}
