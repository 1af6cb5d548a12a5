package types

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags classify failures across component boundaries. Tags decide the
// retry policy: invalid input and parse failures are never retried, gateway
// rejections are surfaced without retry, backend and transport failures are
// retryable by the caller.
var (
	ErrTagInvalidInput    = goerr.NewTag("invalid_input")
	ErrTagParse           = goerr.NewTag("parse")
	ErrTagBackend         = goerr.NewTag("backend")
	ErrTagGatewayRejected = goerr.NewTag("gateway_rejected")
	ErrTagTransport       = goerr.NewTag("transport")
)

// goerr/v2 does not export its tag type (goerr.NewTag returns an unexported
// struct), so the tag parameter is a type parameter inferred from the call
// site and HasTag is reached through an interface assertion.
func hasTag[T any](err error, tag T) bool {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if goErr, ok := cur.(*goerr.Error); ok {
			if tagged, ok := any(goErr).(interface{ HasTag(T) bool }); ok && tagged.HasTag(tag) {
				return true
			}
		}
	}
	return false
}

// IsInvalidInput checks if the error chain carries the invalid_input tag
func IsInvalidInput(err error) bool {
	return hasTag(err, ErrTagInvalidInput)
}

// IsParseError checks if the error chain carries the parse tag
func IsParseError(err error) bool {
	return hasTag(err, ErrTagParse)
}

// IsBackendError checks if the error chain carries the backend tag
func IsBackendError(err error) bool {
	return hasTag(err, ErrTagBackend)
}

// IsGatewayRejected checks if the error chain carries the gateway_rejected tag
func IsGatewayRejected(err error) bool {
	return hasTag(err, ErrTagGatewayRejected)
}

// IsTransportError checks if the error chain carries the transport tag
func IsTransportError(err error) bool {
	return hasTag(err, ErrTagTransport)
}

// IsRetryable checks if the error may succeed on retry. Only backend and
// transport failures qualify; an error that is also tagged invalid_input or
// gateway_rejected is not retryable.
func IsRetryable(err error) bool {
	if IsInvalidInput(err) || IsParseError(err) || IsGatewayRejected(err) {
		return false
	}
	return IsBackendError(err) || IsTransportError(err)
}
