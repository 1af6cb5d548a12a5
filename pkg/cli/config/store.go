package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/repository/firestore"
	"github.com/talaria-bot/talaria/pkg/repository/memory"
	"github.com/talaria-bot/talaria/pkg/repository/redis"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// Store holds CLI flags for the document store backend
type Store struct {
	backend      string
	dimension    int
	dedupeWindow time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int
	documentTTL   time.Duration

	firestoreProjectID  string
	firestoreDatabaseID string
}

// Flags returns CLI flags for store configuration
func (x *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store-backend",
			Usage:       "Store backend type (redis, firestore or memory)",
			Category:    "Store",
			Value:       "redis",
			Sources:     cli.EnvVars("TALARIA_STORE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector dimension of the document index",
			Category:    "Store",
			Value:       model.DefaultEmbeddingDimension,
			Sources:     cli.EnvVars("TALARIA_EMBEDDING_DIMENSION"),
			Destination: &x.dimension,
		},
		&cli.DurationFlag{
			Name:        "dedupe-window",
			Usage:       "How long delivered message IDs are remembered",
			Category:    "Store",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("TALARIA_DEDUPE_WINDOW"),
			Destination: &x.dedupeWindow,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis server address (required when using redis backend)",
			Category:    "Store",
			Value:       "localhost:6379",
			Sources:     cli.EnvVars("TALARIA_REDIS_ADDR"),
			Destination: &x.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Store",
			Sources:     cli.EnvVars("TALARIA_REDIS_PASSWORD"),
			Destination: &x.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Store",
			Sources:     cli.EnvVars("TALARIA_REDIS_DB"),
			Destination: &x.redisDB,
		},
		&cli.DurationFlag{
			Name:        "document-ttl",
			Usage:       "Expiration of stored documents in redis (0 keeps them forever)",
			Category:    "Store",
			Value:       30 * 24 * time.Hour,
			Sources:     cli.EnvVars("TALARIA_DOCUMENT_TTL"),
			Destination: &x.documentTTL,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Store",
			Sources:     cli.EnvVars("TALARIA_FIRESTORE_PROJECT_ID"),
			Destination: &x.firestoreProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Store",
			Sources:     cli.EnvVars("TALARIA_FIRESTORE_DATABASE_ID"),
			Destination: &x.firestoreDatabaseID,
		},
	}
}

func (x Store) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.Int("dimension", x.dimension),
		slog.String("redis_addr", x.redisAddr),
		slog.Int("redis_password.len", len(x.redisPassword)),
		slog.String("firestore_project_id", x.firestoreProjectID),
	)
}

// Backend returns the configured backend type
func (x *Store) Backend() string {
	return x.backend
}

// Dimension returns the embedding vector dimension of the index
func (x *Store) Dimension() int {
	return x.dimension
}

// Configure initializes and returns a repository based on the configured
// backend. Zero-valued tuning fields keep the backend defaults. The caller
// is responsible for calling Close() on the returned repository.
func (x *Store) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch x.backend {
	case "redis":
		if x.redisAddr == "" {
			return nil, goerr.New("redis-addr is required when using redis backend")
		}
		opts := []redis.Option{
			redis.WithPassword(x.redisPassword),
			redis.WithDB(x.redisDB),
		}
		if x.dimension > 0 {
			opts = append(opts, redis.WithDimension(x.dimension))
		}
		if x.documentTTL > 0 {
			opts = append(opts, redis.WithDocumentTTL(x.documentTTL))
		}
		if x.dedupeWindow > 0 {
			opts = append(opts, redis.WithDedupeWindow(x.dedupeWindow))
		}
		repo, err := redis.New(ctx, x.redisAddr, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize redis store")
		}
		logging.Default().Info("Using Redis store",
			"addr", x.redisAddr,
			"db", x.redisDB,
			"dimension", x.dimension,
		)
		return repo, nil

	case "firestore":
		if x.firestoreProjectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		var opts []firestore.Option
		if x.dimension > 0 {
			opts = append(opts, firestore.WithDimension(x.dimension))
		}
		if x.dedupeWindow > 0 {
			opts = append(opts, firestore.WithDedupeWindow(x.dedupeWindow))
		}
		repo, err := firestore.New(ctx, x.firestoreProjectID, x.firestoreDatabaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore store")
		}
		logging.Default().Info("Using Firestore store",
			"project_id", x.firestoreProjectID,
			"database_id", x.firestoreDatabaseID,
			"dimension", x.dimension,
		)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory store (development mode)",
			"dimension", x.dimension)
		var opts []memory.Option
		if x.dimension > 0 {
			opts = append(opts, memory.WithDimension(x.dimension))
		}
		if x.dedupeWindow > 0 {
			opts = append(opts, memory.WithDedupeWindow(x.dedupeWindow))
		}
		return memory.New(opts...), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unsupported store backend",
			goerr.V(BackendKey, x.backend))
	}
}
