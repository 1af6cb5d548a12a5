package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/cli/config"
)

func TestLLM_Configure(t *testing.T) {
	t.Run("returns nil client when gemini project is empty", func(t *testing.T) {
		cfg := config.NewLLMForTest("gemini", "", "us-central1", "")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("returns nil client when openai key is empty", func(t *testing.T) {
		cfg := config.NewLLMForTest("openai", "", "", "")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("rejects an unknown provider", func(t *testing.T) {
		cfg := config.NewLLMForTest("watson", "", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Value(t, err).NotNil()
		gt.Error(t, err).Is(config.ErrInvalidProvider)
	})

	t.Run("returns flags", func(t *testing.T) {
		var cfg config.LLM
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(4)
	})
}
