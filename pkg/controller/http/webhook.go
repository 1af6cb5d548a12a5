package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/utils/errutil"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
	"github.com/talaria-bot/talaria/pkg/utils/safe"
)

// verifyHandler answers the gateway's subscription handshake: echo the
// challenge when the verify token matches, refuse with 403 otherwise
func verifyHandler(uc WebhookUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		echo, ok, err := uc.VerifyHandshake(
			q.Get("hub.mode"),
			q.Get("hub.verify_token"),
			q.Get("hub.challenge"),
		)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "webhook handshake rejected"), http.StatusBadRequest)
			return
		}
		if !ok {
			errutil.HandleHTTP(ctx, w, goerr.New("webhook verify token mismatch"), http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte(echo))
	}
}

type webhookResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// webhookHandler accepts a delivery and acknowledges it. Once the signature
// has been verified the response is 200 regardless of processing outcome;
// redelivery would not fix a payload we cannot handle.
func webhookHandler(uc WebhookUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
			return
		}

		resp := webhookResponse{Status: "ignored"}
		result, err := uc.HandleInbound(ctx, body)
		if err != nil {
			errutil.Handle(ctx, err, "inbound delivery failed")
		} else {
			resp.Status = result.State.String()
			resp.Detail = result.Detail
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.From(ctx).Error("failed to write webhook response", "error", err)
		}
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	StoreOK   *bool  `json:"store_ok,omitempty"`
	GatewayOK *bool  `json:"gateway_ok,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

// healthHandler reports liveness, enriched with the latest dependency probe
// when a health worker is wired. Before the first probe the endpoint stays
// plain ok.
func healthHandler(src HealthSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		code := http.StatusOK

		if src != nil {
			h := src.Health()
			if !h.CheckedAt.IsZero() {
				resp.StoreOK = &h.StoreOK
				resp.GatewayOK = &h.GatewayOK
				resp.CheckedAt = h.CheckedAt.UTC().Format(time.RFC3339)
				if !h.OK() {
					resp.Status = "degraded"
					code = http.StatusServiceUnavailable
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.From(r.Context()).Error("failed to write health response", "error", err)
		}
	}
}
