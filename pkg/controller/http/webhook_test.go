package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	httpctrl "github.com/talaria-bot/talaria/pkg/controller/http"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/service/worker"
)

// computeSignature computes the webhook signature header value for testing
func computeSignature(appSecret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(appSecret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

var errMissingParams = errors.New("verification mode and token are required")

// mockUseCase implements the WebhookUseCase interface for handler tests
type mockUseCase struct {
	mu          sync.Mutex
	verifyToken string
	handleErr   error
	received    [][]byte
}

func (m *mockUseCase) VerifyHandshake(mode, token, challenge string) (string, bool, error) {
	if mode == "" || token == "" {
		return "", false, errMissingParams
	}
	if mode == "subscribe" && token == m.verifyToken {
		return challenge, true, nil
	}
	return "", false, nil
}

func (m *mockUseCase) HandleInbound(ctx context.Context, raw []byte) (*model.ProcessingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, raw)
	if m.handleErr != nil {
		return nil, m.handleErr
	}
	return &model.ProcessingResult{
		State:  types.ProcessingStateAcknowledged,
		Detail: "reply dispatched",
	}, nil
}

func (m *mockUseCase) receivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// staticHealth is a HealthSource with a fixed snapshot
type staticHealth struct {
	health worker.Health
}

func (s *staticHealth) Health() worker.Health { return s.health }

func TestVerifySignature(t *testing.T) {
	appSecret := "test-app-secret"
	body := []byte(`{"object":"whatsapp_business_account"}`)

	t.Run("valid signature", func(t *testing.T) {
		signature := computeSignature(appSecret, body)

		if err := httpctrl.VerifySignature(appSecret, signature, body); err != nil {
			t.Errorf("expected no error, got: %v", err)
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		if err := httpctrl.VerifySignature(appSecret, "sha256=deadbeef", body); err == nil {
			t.Error("expected error for invalid signature, got nil")
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		if err := httpctrl.VerifySignature(appSecret, "", body); err == nil {
			t.Error("expected error for missing signature, got nil")
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		if err := httpctrl.VerifySignature(appSecret, "sha1=abc123", body); err == nil {
			t.Error("expected error for unsupported scheme, got nil")
		}
	})

	t.Run("wrong secret produces different signature", func(t *testing.T) {
		signature := computeSignature("other-secret", body)

		if err := httpctrl.VerifySignature(appSecret, signature, body); err == nil {
			t.Error("expected error when using wrong secret, got nil")
		}
	})

	t.Run("body change invalidates the signature", func(t *testing.T) {
		signature := computeSignature(appSecret, []byte("different body"))

		if err := httpctrl.VerifySignature(appSecret, signature, body); err == nil {
			t.Error("expected error when body doesn't match signature, got nil")
		}
	})
}

func TestSignatureMiddleware(t *testing.T) {
	appSecret := "test-app-secret"
	body := []byte(`{"object":"whatsapp_business_account"}`)

	t.Run("calls next handler when signature is valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", computeSignature(appSecret, body))
		rec := httptest.NewRecorder()

		nextCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusOK)
		})

		httpctrl.SignatureMiddleware(appSecret)(next).ServeHTTP(rec, req)

		if !nextCalled {
			t.Error("expected next handler to be called, but it wasn't")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("rejects an invalid signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
		rec := httptest.NewRecorder()

		nextCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
		})

		httpctrl.SignatureMiddleware(appSecret)(next).ServeHTTP(rec, req)

		if nextCalled {
			t.Error("expected next handler NOT to be called, but it was")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
		}
	})

	t.Run("rejects a missing signature header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		httpctrl.SignatureMiddleware(appSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("next handler must not run without a signature")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
		}
	})

	t.Run("restores request body for next handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", computeSignature(appSecret, body))
		rec := httptest.NewRecorder()

		var receivedBody []byte
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			receivedBody, err = io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("failed to read body in next handler: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		})

		httpctrl.SignatureMiddleware(appSecret)(next).ServeHTTP(rec, req)

		if string(receivedBody) != string(body) {
			t.Errorf("expected body %s, got %s", string(body), string(receivedBody))
		}
	})
}

func TestVerifyHandler(t *testing.T) {
	uc := &mockUseCase{verifyToken: "secret-token"}
	server := httpctrl.New(uc)

	t.Run("echoes the challenge on a valid handshake", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/hooks/whatsapp?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if got := rec.Body.String(); got != "1158201444" {
			t.Errorf("expected challenge echo, got %q", got)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("expected text/plain content type, got %q", ct)
		}
	})

	t.Run("refuses a wrong token with 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/hooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1158201444", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
		}
	})

	t.Run("refuses missing parameters with 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/hooks/whatsapp", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestWebhookHandler(t *testing.T) {
	payload := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	t.Run("acknowledges a delivery with the processing state", func(t *testing.T) {
		uc := &mockUseCase{verifyToken: "secret-token"}
		server := httpctrl.New(uc)

		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(payload))
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp struct {
			Status string `json:"status"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "acknowledged" {
			t.Errorf("expected status acknowledged, got %q", resp.Status)
		}
		if uc.receivedCount() != 1 {
			t.Errorf("expected 1 delivery handed to the use case, got %d", uc.receivedCount())
		}
	})

	t.Run("still acknowledges when processing fails", func(t *testing.T) {
		uc := &mockUseCase{verifyToken: "secret-token", handleErr: errors.New("no message or status node in webhook payload")}
		server := httpctrl.New(uc)

		req := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(payload))
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "ignored" {
			t.Errorf("expected status ignored, got %q", resp.Status)
		}
	})

	t.Run("verifies signatures when an app secret is configured", func(t *testing.T) {
		uc := &mockUseCase{verifyToken: "secret-token"}
		server := httpctrl.New(uc, httpctrl.WithAppSecret("app-secret"))

		signed := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(payload))
		signed.Header.Set("X-Hub-Signature-256", computeSignature("app-secret", payload))
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, signed)
		if rec.Code != http.StatusOK {
			t.Errorf("expected signed delivery to pass, got status %d", rec.Code)
		}
		if uc.receivedCount() != 1 {
			t.Errorf("expected 1 delivery handed to the use case, got %d", uc.receivedCount())
		}

		unsigned := httptest.NewRequest(http.MethodPost, "/hooks/whatsapp", bytes.NewReader(payload))
		rec = httptest.NewRecorder()

		server.ServeHTTP(rec, unsigned)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected unsigned delivery to be refused, got status %d", rec.Code)
		}
		if uc.receivedCount() != 1 {
			t.Errorf("expected the refused delivery not to reach the use case, got %d", uc.receivedCount())
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("plain ok without a health source", func(t *testing.T) {
		server := httpctrl.New(&mockUseCase{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "ok" {
			t.Errorf("expected status ok, got %q", resp.Status)
		}
	})

	t.Run("reports the dependency probe", func(t *testing.T) {
		src := &staticHealth{health: worker.Health{
			StoreOK:   true,
			GatewayOK: true,
			CheckedAt: time.Now(),
		}}
		server := httpctrl.New(&mockUseCase{}, httpctrl.WithHealthSource(src))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp struct {
			Status    string `json:"status"`
			StoreOK   *bool  `json:"store_ok"`
			GatewayOK *bool  `json:"gateway_ok"`
			CheckedAt string `json:"checked_at"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.StoreOK == nil || !*resp.StoreOK {
			t.Error("expected store_ok true")
		}
		if resp.CheckedAt == "" {
			t.Error("expected checked_at to be set")
		}
	})

	t.Run("degraded probe turns the endpoint 503", func(t *testing.T) {
		src := &staticHealth{health: worker.Health{
			StoreOK:   true,
			GatewayOK: false,
			CheckedAt: time.Now(),
		}}
		server := httpctrl.New(&mockUseCase{}, httpctrl.WithHealthSource(src))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "degraded" {
			t.Errorf("expected status degraded, got %q", resp.Status)
		}
	})

	t.Run("stays ok before the first probe", func(t *testing.T) {
		server := httpctrl.New(&mockUseCase{}, httpctrl.WithHealthSource(&staticHealth{}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})
}
