package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/utils/errutil"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// verifySignature checks the X-Hub-Signature-256 header value against the
// HMAC-SHA256 of the body keyed with the app secret. This is a pure function
// that can be used independently for testing.
func verifySignature(appSecret, signature string, body []byte) error {
	if signature == "" {
		return goerr.New("missing signature header")
	}

	provided, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return goerr.New("unsupported signature scheme", goerr.V("signature", signature))
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	if _, err := mac.Write(body); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return goerr.New("signature mismatch")
	}

	return nil
}

// SignatureMiddleware creates a middleware that verifies gateway webhook
// signatures. The body is consumed for verification and restored for the
// next handler.
func SignatureMiddleware(appSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer func() {
				if err := r.Body.Close(); err != nil {
					logging.From(ctx).Error("failed to close request body", "error", err)
				}
			}()

			signature := r.Header.Get("X-Hub-Signature-256")
			if err := verifySignature(appSecret, signature, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "webhook signature verification failed"), http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewBuffer(body))
			next.ServeHTTP(w, r)
		})
	}
}
