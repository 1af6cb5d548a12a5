package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// Handle logs the error with its goerr context and reports it to Sentry when
// monitoring is configured. The error is returned unchanged so callers can
// keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	// No-op unless sentry.Init has been called at startup
	sentry.CaptureException(err)

	return err
}

// HandleHTTP logs the error and writes an appropriate HTTP error response.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	if statusCode >= http.StatusInternalServerError {
		sentry.CaptureException(err)
	}

	http.Error(w, err.Error(), statusCode)
}
