package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/service/worker"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// WebhookUseCase is the slice of the use case layer the webhook endpoints
// need
type WebhookUseCase interface {
	VerifyHandshake(mode, token, challenge string) (string, bool, error)
	HandleInbound(ctx context.Context, raw []byte) (*model.ProcessingResult, error)
}

// HealthSource reports the latest dependency probe for the health endpoint
type HealthSource interface {
	Health() worker.Health
}

type Server struct {
	router    *chi.Mux
	appSecret string
	health    HealthSource
}

type Options func(*Server)

// WithAppSecret enables webhook signature verification with the gateway
// app secret. Without it, deliveries are accepted unverified.
func WithAppSecret(secret string) Options {
	return func(s *Server) {
		s.appSecret = secret
	}
}

// WithHealthSource wires the health worker snapshot into GET /health
func WithHealthSource(src HealthSource) Options {
	return func(s *Server) {
		s.health = src
	}
}

func New(uc WebhookUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(s.health))

	// Webhook endpoints. The handshake GET is unsigned by the gateway;
	// delivery POSTs are verified when an app secret is configured.
	r.Route("/hooks/whatsapp", func(r chi.Router) {
		r.Get("/", verifyHandler(uc))

		if s.appSecret != "" {
			r.With(SignatureMiddleware(s.appSecret)).Post("/", webhookHandler(uc))
		} else {
			r.Post("/", webhookHandler(uc))
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
