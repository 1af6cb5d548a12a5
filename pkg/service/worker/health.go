package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/service/whatsapp"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

// DefaultHealthInterval is how often the health worker probes dependencies
const DefaultHealthInterval = time.Minute

// Health is a snapshot of the last dependency probe
type Health struct {
	StoreOK   bool
	GatewayOK bool
	CheckedAt time.Time
}

// OK reports whether every probed dependency answered
func (h Health) OK() bool {
	return h.StoreOK && h.GatewayOK
}

// HealthWorker periodically probes the document store and the messaging
// gateway and keeps the last result for dispatch gating and the health
// endpoint
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Probe failures are logged and retried next interval
type HealthWorker struct {
	repo     interfaces.Repository
	gateway  whatsapp.Service
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu   sync.RWMutex
	last Health
}

// NewHealthWorker creates a worker probing the given store and gateway.
// A non-positive interval falls back to DefaultHealthInterval.
func NewHealthWorker(repo interfaces.Repository, gateway whatsapp.Service, interval time.Duration) *HealthWorker {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	return &HealthWorker{
		repo:     repo,
		gateway:  gateway,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background probe loop
// - Initial probe and periodic probes both run in a background goroutine
// - Does not block server startup
func (w *HealthWorker) Start(ctx context.Context) error {
	logging.Default().Info("Health worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *HealthWorker) Stop() {
	logging.Default().Info("Health worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Health worker stopped")
}

// Health returns the last probe snapshot
func (w *HealthWorker) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Healthy reports whether the last probe found every dependency reachable.
// Until the first probe completes it reports healthy, so startup traffic is
// not refused before any evidence exists.
func (w *HealthWorker) Healthy() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.last.CheckedAt.IsZero() {
		return true
	}
	return w.last.OK()
}

// run is the main worker loop (runs in goroutine)
func (w *HealthWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.check(ctx); err != nil {
		logging.Default().Error("Initial health probe failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("Health probe failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Health worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Health worker context cancelled")
			return
		}
	}
}

// check performs a single probe cycle and records the snapshot
func (w *HealthWorker) check(ctx context.Context) error {
	storeErr := w.repo.Ping(ctx)
	gatewayErr := w.gateway.HealthCheck(ctx)

	status := Health{
		StoreOK:   storeErr == nil,
		GatewayOK: gatewayErr == nil,
		CheckedAt: time.Now(),
	}

	w.mu.Lock()
	prev := w.last
	w.last = status
	w.mu.Unlock()

	if status.OK() {
		if !prev.CheckedAt.IsZero() && !prev.OK() {
			logging.Default().Info("Dependency health recovered")
		}
		return nil
	}

	return goerr.New("dependency probe failed",
		goerr.V("store_ok", status.StoreOK),
		goerr.V("gateway_ok", status.GatewayOK),
		goerr.V("store_error", errMessage(storeErr)),
		goerr.V("gateway_error", errMessage(gatewayErr)),
	)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
