package types_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

func TestErrorTags_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{
			name:  "invalid input tag",
			err:   goerr.New("bad request", goerr.T(types.ErrTagInvalidInput)),
			check: types.IsInvalidInput,
			want:  true,
		},
		{
			name:  "parse tag",
			err:   goerr.New("broken payload", goerr.T(types.ErrTagParse)),
			check: types.IsParseError,
			want:  true,
		},
		{
			name:  "backend tag",
			err:   goerr.New("store unavailable", goerr.T(types.ErrTagBackend)),
			check: types.IsBackendError,
			want:  true,
		},
		{
			name:  "gateway rejected tag",
			err:   goerr.New("rejected", goerr.T(types.ErrTagGatewayRejected)),
			check: types.IsGatewayRejected,
			want:  true,
		},
		{
			name:  "transport tag",
			err:   goerr.New("connection reset", goerr.T(types.ErrTagTransport)),
			check: types.IsTransportError,
			want:  true,
		},
		{
			name:  "tag missing",
			err:   goerr.New("plain failure"),
			check: types.IsBackendError,
			want:  false,
		},
		{
			name:  "non goerr error",
			err:   errors.New("plain failure"),
			check: types.IsTransportError,
			want:  false,
		},
		{
			name:  "nil error",
			err:   nil,
			check: types.IsInvalidInput,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want {
				gt.B(t, tt.check(tt.err)).True()
			} else {
				gt.B(t, tt.check(tt.err)).False()
			}
		})
	}
}

func TestErrorTags_FoundThroughWrapping(t *testing.T) {
	inner := goerr.New("redis timeout", goerr.T(types.ErrTagBackend))
	outer := goerr.Wrap(inner, "failed to store document")

	gt.B(t, types.IsBackendError(outer)).True()
	gt.B(t, types.IsInvalidInput(outer)).False()
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "backend error is retryable",
			err:  goerr.New("store unavailable", goerr.T(types.ErrTagBackend)),
			want: true,
		},
		{
			name: "transport error is retryable",
			err:  goerr.New("connection reset", goerr.T(types.ErrTagTransport)),
			want: true,
		},
		{
			name: "invalid input is not retryable",
			err:  goerr.New("bad request", goerr.T(types.ErrTagInvalidInput)),
			want: false,
		},
		{
			name: "gateway rejection is not retryable",
			err:  goerr.New("rejected", goerr.T(types.ErrTagGatewayRejected)),
			want: false,
		},
		{
			name: "invalid input overrides transport",
			err: goerr.Wrap(
				goerr.New("bad payload", goerr.T(types.ErrTagInvalidInput)),
				"send failed", goerr.T(types.ErrTagTransport)),
			want: false,
		},
		{
			name: "untagged error is not retryable",
			err:  errors.New("plain failure"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want {
				gt.B(t, types.IsRetryable(tt.err)).True()
			} else {
				gt.B(t, types.IsRetryable(tt.err)).False()
			}
		})
	}
}
