package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// DefaultDedupeWindow is how long a seen message ID is remembered.
const DefaultDedupeWindow = 24 * time.Hour

type Firestore struct {
	client   *firestore.Client
	document *documentRepository
	dedupe   *dedupeRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes all collection names, mainly to isolate
// test runs sharing one database.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.document.collectionPrefix = prefix
		f.dedupe.collectionPrefix = prefix
	}
}

func WithDimension(dimension int) Option {
	return func(f *Firestore) {
		f.document.dimension = dimension
	}
}

func WithDedupeWindow(window time.Duration) Option {
	return func(f *Firestore) {
		f.dedupe.window = window
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.T(types.ErrTagBackend),
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:   client,
		document: newDocumentRepository(client, model.DefaultEmbeddingDimension),
		dedupe:   newDedupeRepository(client, DefaultDedupeWindow),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Document() interfaces.DocumentRepository {
	return f.document
}

func (f *Firestore) Dedupe() interfaces.DedupeRepository {
	return f.dedupe
}

// Ping verifies the backend is reachable by reading one document from the
// document collection.
func (f *Firestore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	iter := f.client.Collection(f.document.documentsCollection()).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.GetAll(); err != nil {
		return goerr.Wrap(err, "firestore ping failed", goerr.T(types.ErrTagBackend))
	}
	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
