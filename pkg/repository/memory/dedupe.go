package memory

import (
	"context"
	"sync"
	"time"
)

type dedupeRepository struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []string
	maxSize int
	window  time.Duration
}

func newDedupeRepository(maxSize int, window time.Duration) *dedupeRepository {
	return &dedupeRepository{
		seen:    make(map[string]time.Time),
		maxSize: maxSize,
		window:  window,
	}
}

// IsNew records messageID and reports whether it had not been seen within
// the retention window. Concurrent callers with the same ID get exactly
// one true.
func (r *dedupeRepository) IsNew(ctx context.Context, messageID string) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpired(now)

	if _, exists := r.seen[messageID]; exists {
		return false, nil
	}

	r.seen[messageID] = now
	r.order = append(r.order, messageID)
	r.evictOldest()

	return true, nil
}

// evictExpired drops entries past the retention window. Caller must hold mu.
func (r *dedupeRepository) evictExpired(now time.Time) {
	kept := r.order[:0]
	for _, id := range r.order {
		if now.Sub(r.seen[id]) >= r.window {
			delete(r.seen, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// evictOldest keeps the tracked set within the size bound. Caller must
// hold mu.
func (r *dedupeRepository) evictOldest() {
	for len(r.order) > r.maxSize {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.seen, oldest)
	}
}
