package usecase

import (
	"time"

	"cloud.google.com/go/storage"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/service/responder"
	"github.com/talaria-bot/talaria/pkg/service/search"
	whatsappsvc "github.com/talaria-bot/talaria/pkg/service/whatsapp"
	"github.com/talaria-bot/talaria/pkg/service/worker"
)

// HealthGate reports whether dependencies look healthy enough to attempt
// dispatch. The health worker satisfies it.
type HealthGate interface {
	Healthy() bool
}

// UseCases wires the inbound pipeline, the ingestion path and direct query
// access. Collaborators beyond the repository are injected per deployment:
// the serve command configures all of them, the ingest and search commands
// only what they need.
type UseCases struct {
	repo      interfaces.Repository
	search    search.Service
	responder responder.Service
	gateway   whatsappsvc.Service
	pool      *worker.Pool
	health    HealthGate
	profile   *model.BotProfile
	limiter   *senderLimiter
	gcs       *storage.Client

	verifyToken      string
	topK             int
	threshold        float64
	dispatchAttempts int
	dispatchBackoff  time.Duration
}

type Option func(*UseCases)

// WithSearch sets the semantic search service
func WithSearch(svc search.Service) Option {
	return func(uc *UseCases) {
		uc.search = svc
	}
}

// WithResponder sets the LLM reply and embedding service
func WithResponder(svc responder.Service) Option {
	return func(uc *UseCases) {
		uc.responder = svc
	}
}

// WithGateway sets the messaging gateway client
func WithGateway(svc whatsappsvc.Service) Option {
	return func(uc *UseCases) {
		uc.gateway = svc
	}
}

// WithPool sets the conversation-keyed worker pool. Without a pool,
// HandleInbound processes events inline.
func WithPool(pool *worker.Pool) Option {
	return func(uc *UseCases) {
		uc.pool = pool
	}
}

// WithHealthGate sets the dispatch gate read before sending replies
func WithHealthGate(gate HealthGate) Option {
	return func(uc *UseCases) {
		uc.health = gate
	}
}

// WithProfile sets the bot profile (persona and canned replies)
func WithProfile(profile *model.BotProfile) Option {
	return func(uc *UseCases) {
		if profile != nil {
			uc.profile = profile
		}
	}
}

// WithVerifyToken sets the webhook handshake verification token
func WithVerifyToken(token string) Option {
	return func(uc *UseCases) {
		uc.verifyToken = token
	}
}

// WithRateLimit replaces the per-sender rate limit. A non-positive count
// disables the gate.
func WithRateLimit(count int, window time.Duration) Option {
	return func(uc *UseCases) {
		if count <= 0 {
			uc.limiter = nil
			return
		}
		uc.limiter = newSenderLimiter(count, window)
	}
}

// WithSearchDefaults sets the topK and threshold applied to inbound queries
func WithSearchDefaults(topK int, threshold float64) Option {
	return func(uc *UseCases) {
		if topK > 0 {
			uc.topK = topK
		}
		if threshold >= 0 && threshold <= 1 {
			uc.threshold = threshold
		}
	}
}

// WithDispatchRetry sets the bounded retry applied to transport failures
// during dispatch
func WithDispatchRetry(attempts int, backoff time.Duration) Option {
	return func(uc *UseCases) {
		if attempts > 0 {
			uc.dispatchAttempts = attempts
		}
		if backoff > 0 {
			uc.dispatchBackoff = backoff
		}
	}
}

// WithStorageClient sets the GCS client used by Ingest for gs:// sources
func WithStorageClient(client *storage.Client) Option {
	return func(uc *UseCases) {
		uc.gcs = client
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:             repo,
		profile:          model.DefaultBotProfile(),
		limiter:          newSenderLimiter(DefaultRateLimitCount, DefaultRateLimitWindow),
		topK:             search.DefaultTopK,
		threshold:        search.DefaultThreshold,
		dispatchAttempts: DefaultDispatchAttempts,
		dispatchBackoff:  DefaultDispatchBackoff,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
