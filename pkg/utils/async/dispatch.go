package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine.
// The webhook controller uses it to acknowledge deliveries before processing
// finishes: the handler runs on a fresh background context (detached from the
// request lifetime) that keeps the request's logger, and panics are contained
// so one bad delivery cannot take the server down.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}
