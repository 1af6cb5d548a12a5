package redis

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

type dedupeRepository struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func newDedupeRepository(client *redis.Client, prefix string, window time.Duration) *dedupeRepository {
	return &dedupeRepository{
		client: client,
		prefix: prefix,
		window: window,
	}
}

// IsNew marks messageID as seen and reports whether this call was the first
// within the retention window. SETNX makes the check-and-set atomic, so
// concurrent deliveries of the same ID get exactly one true.
func (r *dedupeRepository) IsNew(ctx context.Context, messageID string) (bool, error) {
	key := r.prefix + messageID

	isNew, err := r.client.SetNX(ctx, key, 1, r.window).Result()
	if err != nil {
		return false, goerr.Wrap(err, "dedupe check failed",
			goerr.T(types.ErrTagBackend),
			goerr.V("key", key))
	}

	return isNew, nil
}
