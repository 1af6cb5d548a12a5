package usecase

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimitCount is the number of messages a sender may submit
	// per window before replies are refused with the rate limit message
	DefaultRateLimitCount = 10

	// DefaultRateLimitWindow is the window of the per-sender limit
	DefaultRateLimitWindow = time.Minute

	// senderLimiterMax bounds the registry size; past it the least recently
	// seen half is pruned
	senderLimiterMax = 10000
)

// senderLimiter applies a token bucket per sender. The bucket refills at
// count-per-window and bursts up to count, approximating "at most count
// messages in any window".
type senderLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSenderLimiter(count int, window time.Duration) *senderLimiter {
	if count <= 0 {
		count = DefaultRateLimitCount
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}

	return &senderLimiter{
		limit:    rate.Every(window / time.Duration(count)),
		burst:    count,
		limiters: make(map[string]*limiterEntry),
	}
}

// Allow reports whether the sender may submit another message now
func (s *senderLimiter) Allow(senderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[senderID]
	if !ok {
		if len(s.limiters) >= senderLimiterMax {
			s.prune()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[senderID] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// prune drops the least recently seen half of the registry. The caller holds
// the mutex.
func (s *senderLimiter) prune() {
	type seen struct {
		id string
		at time.Time
	}

	entries := make([]seen, 0, len(s.limiters))
	for id, entry := range s.limiters {
		entries = append(entries, seen{id: id, at: entry.lastSeen})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	for _, e := range entries[:len(entries)/2] {
		delete(s.limiters, e.id)
	}
}
