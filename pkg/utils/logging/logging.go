package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/masq"
)

// Format is the output format of a logger
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	defaultLogger *slog.Logger
	defaultMutex  sync.RWMutex
)

func init() {
	defaultLogger = New(os.Stdout, slog.LevelInfo, FormatConsole)
}

// filter masks credential fields so tokens never leak into log output
func filter() func(groups []string, attr slog.Attr) slog.Attr {
	return masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("AccessToken"),
		masq.WithFieldName("Authorization"),
		masq.WithFieldPrefix("secret_"),
	)
}

// New creates a logger writing to w at the given level and format
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: filter(),
		}))

	default:
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithSource(true),
			clog.WithReplaceAttr(filter()),
		))
	}
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	defaultMutex.RLock()
	defer defaultMutex.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger
func SetDefault(logger *slog.Logger) {
	defaultMutex.Lock()
	defer defaultMutex.Unlock()
	defaultLogger = logger
}

type ctxLoggerKey struct{}

// With embeds the logger into the context
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From extracts the logger from the context, falling back to Default
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}
