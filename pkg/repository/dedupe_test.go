package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/repository/firestore"
	"github.com/talaria-bot/talaria/pkg/repository/memory"
	"github.com/talaria-bot/talaria/pkg/repository/redis"
)

func runDedupeRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("first sight is new, replay is not", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		messageID := fmt.Sprintf("wamid.dedupe-%d", time.Now().UnixNano())

		isNew, err := repo.Dedupe().IsNew(ctx, messageID)
		gt.NoError(t, err).Required()
		gt.Bool(t, isNew).True()

		isNew, err = repo.Dedupe().IsNew(ctx, messageID)
		gt.NoError(t, err).Required()
		gt.Bool(t, isNew).False()
	})

	t.Run("distinct IDs are independent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		base := time.Now().UnixNano()
		for i := 0; i < 3; i++ {
			isNew, err := repo.Dedupe().IsNew(ctx, fmt.Sprintf("wamid.distinct-%d-%d", base, i))
			gt.NoError(t, err).Required()
			gt.Bool(t, isNew).
				Describef("ID %d should be new", i).
				True()
		}
	})

	t.Run("concurrent checks admit exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		messageID := fmt.Sprintf("wamid.race-%d", time.Now().UnixNano())
		const attempts = 20

		var admitted atomic.Int64
		var wg sync.WaitGroup
		errCh := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				isNew, err := repo.Dedupe().IsNew(ctx, messageID)
				if err != nil {
					errCh <- err
					return
				}
				if isNew {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			gt.NoError(t, err)
		}

		gt.Value(t, admitted.Load()).Equal(int64(1))
	})
}

func runDedupeExpiryTest(t *testing.T, repo interfaces.Repository) {
	t.Helper()
	ctx := context.Background()

	messageID := fmt.Sprintf("wamid.expiry-%d", time.Now().UnixNano())

	isNew, err := repo.Dedupe().IsNew(ctx, messageID)
	gt.NoError(t, err).Required()
	gt.Bool(t, isNew).True()

	time.Sleep(200 * time.Millisecond)

	isNew, err = repo.Dedupe().IsNew(ctx, messageID)
	gt.NoError(t, err).Required()
	gt.Bool(t, isNew).True()
}

func TestMemoryDedupeRepository(t *testing.T) {
	runDedupeRepositoryTest(t, newMemoryRepository)
}

func TestRedisDedupeRepository(t *testing.T) {
	runDedupeRepositoryTest(t, newRedisRepository)
}

func TestFirestoreDedupeRepository(t *testing.T) {
	runDedupeRepositoryTest(t, newFirestoreRepository)
}

func TestDedupeExpiry(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		runDedupeExpiryTest(t, memory.New(memory.WithDedupeWindow(100*time.Millisecond)))
	})

	t.Run("Redis", func(t *testing.T) {
		addr := os.Getenv("TEST_REDIS_ADDR")
		if addr == "" {
			t.Skip("TEST_REDIS_ADDR not set")
		}

		ctx := context.Background()
		repo, err := redis.New(ctx, addr,
			redis.WithKeyPrefix(fmt.Sprintf("test:%d:doc:", time.Now().UnixNano())),
			redis.WithDedupeWindow(100*time.Millisecond),
		)
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			gt.NoError(t, repo.Close())
		})
		runDedupeExpiryTest(t, repo)
	})

	t.Run("Firestore", func(t *testing.T) {
		projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
		if projectID == "" {
			t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
		}
		databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
		if databaseID == "" {
			t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
		}

		ctx := context.Background()
		repo, err := firestore.New(ctx, projectID, databaseID,
			firestore.WithDedupeWindow(100*time.Millisecond))
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			gt.NoError(t, repo.Close())
		})
		runDedupeExpiryTest(t, repo)
	})
}

func TestMemoryDedupeEviction(t *testing.T) {
	repo := memory.New(memory.WithDedupeSize(3))
	ctx := context.Background()

	base := time.Now().UnixNano()
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = fmt.Sprintf("wamid.evict-%d-%d", base, i)
		isNew, err := repo.Dedupe().IsNew(ctx, ids[i])
		gt.NoError(t, err).Required()
		gt.Bool(t, isNew).
			Describef("ID %d should be new", i).
			True()
	}

	// The two oldest entries were evicted by the size bound; replaying
	// them counts as new again.
	isNew, err := repo.Dedupe().IsNew(ctx, ids[0])
	gt.NoError(t, err).Required()
	gt.Bool(t, isNew).True()

	// The newest entry is still tracked.
	isNew, err = repo.Dedupe().IsNew(ctx, ids[4])
	gt.NoError(t, err).Required()
	gt.Bool(t, isNew).False()
}
