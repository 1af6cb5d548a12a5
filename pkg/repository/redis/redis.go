package redis

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

const (
	// DefaultKeyPrefix namespaces document hashes in Redis.
	DefaultKeyPrefix = "doc:"

	// DefaultDedupePrefix namespaces seen-message markers.
	DefaultDedupePrefix = "seen:"

	// DefaultDedupeWindow is how long a seen message ID is remembered.
	DefaultDedupeWindow = 24 * time.Hour
)

// Redis is the repository backed by Redis Stack. Documents live in hashes
// under the key prefix and are searchable through a RediSearch vector index.
type Redis struct {
	client   *redis.Client
	document *documentRepository
	dedupe   *dedupeRepository
}

var _ interfaces.Repository = &Redis{}

type config struct {
	password     string
	db           int
	keyPrefix    string
	indexName    string
	dimension    int
	documentTTL  time.Duration
	dedupeWindow time.Duration
}

type Option func(*config)

func WithPassword(password string) Option {
	return func(c *config) {
		c.password = password
	}
}

func WithDB(db int) Option {
	return func(c *config) {
		c.db = db
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		c.keyPrefix = prefix
	}
}

func WithIndexName(name string) Option {
	return func(c *config) {
		c.indexName = name
	}
}

func WithDimension(dimension int) Option {
	return func(c *config) {
		c.dimension = dimension
	}
}

// WithDocumentTTL sets an expiration on stored documents. Zero keeps
// documents forever.
func WithDocumentTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.documentTTL = ttl
	}
}

func WithDedupeWindow(window time.Duration) Option {
	return func(c *config) {
		c.dedupeWindow = window
	}
}

func New(ctx context.Context, addr string, opts ...Option) (*Redis, error) {
	cfg := &config{
		keyPrefix:    DefaultKeyPrefix,
		indexName:    model.DefaultIndexName,
		dimension:    model.DefaultEmbeddingDimension,
		dedupeWindow: DefaultDedupeWindow,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.password,
		DB:       cfg.db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to connect to redis",
			goerr.T(types.ErrTagBackend),
			goerr.V("addr", addr))
	}

	return &Redis{
		client:   client,
		document: newDocumentRepository(client, cfg),
		dedupe:   newDedupeRepository(client, DefaultDedupePrefix, cfg.dedupeWindow),
	}, nil
}

func (r *Redis) Document() interfaces.DocumentRepository {
	return r.document
}

func (r *Redis) Dedupe() interfaces.DedupeRepository {
	return r.dedupe
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return goerr.Wrap(err, "redis ping failed", goerr.T(types.ErrTagBackend))
	}
	return nil
}

func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
