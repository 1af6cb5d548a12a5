package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/cli/config"
)

func TestStore_Configure(t *testing.T) {
	t.Run("memory backend needs no external service", func(t *testing.T) {
		cfg := config.NewStoreForTest("memory", 3)

		repo, err := cfg.Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		defer func() {
			gt.NoError(t, repo.Close())
		}()

		gt.NoError(t, repo.Ping(t.Context()))
		gt.Value(t, repo.Document()).NotNil()
		gt.Value(t, repo.Dedupe()).NotNil()
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		cfg := config.NewStoreForTest("cassandra", 3)

		_, err := cfg.Configure(t.Context())
		gt.Value(t, err).NotNil()
		gt.Error(t, err).Is(config.ErrInvalidBackend)
	})

	t.Run("firestore backend requires a project ID", func(t *testing.T) {
		cfg := config.NewStoreForTest("firestore", 3)

		_, err := cfg.Configure(t.Context())
		gt.Value(t, err).NotNil()
	})

	t.Run("returns flags", func(t *testing.T) {
		var cfg config.Store
		flags := cfg.Flags()
		gt.Number(t, len(flags)).GreaterOrEqual(8)
	})
}
