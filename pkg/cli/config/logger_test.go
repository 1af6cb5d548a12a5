package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/cli/config"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

func TestLogger_Configure(t *testing.T) {
	// Configure replaces the process-wide logger; restore it afterwards
	orig := logging.Default()
	t.Cleanup(func() {
		logging.SetDefault(orig)
	})

	t.Run("default configuration", func(t *testing.T) {
		cfg := config.NewLoggerForTest("info", "console", "stdout")
		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, closer).NotNil()
		closer()
	})

	t.Run("json format to a file", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "talaria.log")
		cfg := config.NewLoggerForTest("debug", "json", logPath)

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("hello from test")
		closer()

		data, err := os.ReadFile(logPath)
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains("hello from test")
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		cfg := config.NewLoggerForTest("verbose", "console", "stdout")
		_, err := cfg.Configure()
		gt.Value(t, err).NotNil()
		gt.Error(t, err).Is(config.ErrInvalidLogLevel)
	})

	t.Run("invalid format is rejected", func(t *testing.T) {
		cfg := config.NewLoggerForTest("info", "xml", "stdout")
		_, err := cfg.Configure()
		gt.Value(t, err).NotNil()
		gt.Error(t, err).Is(config.ErrInvalidLogFormat)
	})

	t.Run("returns flags", func(t *testing.T) {
		var cfg config.Logger
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(3)
	})
}
