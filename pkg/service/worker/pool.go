package worker

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/utils/errutil"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

const (
	// DefaultPoolSize is the number of lanes (and worker goroutines) used
	// when no explicit size is configured
	DefaultPoolSize = 4

	// DefaultQueueSize is the per-lane queue capacity used when no explicit
	// size is configured
	DefaultQueueSize = 64
)

// ErrLaneFull is returned by Submit when the lane owning the key has no
// queue capacity left
var ErrLaneFull = goerr.New("worker lane is full")

// Task is a unit of work executed on a pool lane
type Task func(ctx context.Context) error

type queuedTask struct {
	ctx context.Context
	key string
	fn  Task
}

// Pool executes tasks on a fixed set of worker goroutines. Tasks submitted
// with the same key land on the same lane and run one at a time in
// submission order; tasks with different keys may run in parallel on other
// lanes.
//
// Architecture assumptions:
// - Single server instance (ordering is per-process, no distributed queue)
// - Keys are conversation identifiers with a roughly even hash distribution
type Pool struct {
	lanes     []chan queuedTask
	queueSize int
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with the given number of lanes and per-lane queue
// capacity. Non-positive values fall back to the defaults.
func NewPool(size, queueSize int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	lanes := make([]chan queuedTask, size)
	for i := range lanes {
		lanes[i] = make(chan queuedTask, queueSize)
	}

	return &Pool{
		lanes:     lanes,
		queueSize: queueSize,
	}
}

// Start launches one goroutine per lane
// - Does not block server startup
func (p *Pool) Start(ctx context.Context) error {
	logging.From(ctx).Info("Worker pool starting",
		"lanes", len(p.lanes),
		"queue_size", p.queueSize)

	for _, lane := range p.lanes {
		p.wg.Add(1)
		go p.run(lane)
	}

	return nil
}

// Stop rejects further submissions and waits until every queued task has
// been processed
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, lane := range p.lanes {
		close(lane)
	}
	p.mu.Unlock()

	logging.Default().Info("Worker pool stopping")
	p.wg.Wait()
	logging.Default().Info("Worker pool stopped")
}

// Submit places a task on the lane owning key. The task runs on a fresh
// background context that keeps the submitter's logger, so a webhook request
// can be acknowledged before its processing finishes. Submitting to a
// stopped pool or a full lane fails immediately; a full lane is reported
// with ErrLaneFull.
func (p *Pool) Submit(ctx context.Context, key string, fn Task) error {
	if fn == nil {
		return goerr.New("task is required", goerr.V("key", key))
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return goerr.New("worker pool is stopped", goerr.V("key", key))
	}

	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	lane := p.lanes[p.laneIndex(key)]
	select {
	case lane <- queuedTask{ctx: bgCtx, key: key, fn: fn}:
		return nil
	default:
		return goerr.Wrap(ErrLaneFull, "cannot enqueue task",
			goerr.V("key", key),
			goerr.V("queue_size", p.queueSize))
	}
}

// laneIndex maps a key to its lane by FNV-1a hash
func (p *Pool) laneIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.lanes)))
}

// run drains one lane until it is closed (runs in goroutine)
func (p *Pool) run(lane chan queuedTask) {
	defer p.wg.Done()

	for t := range lane {
		p.process(t)
	}
}

// process executes a single task. Panics are contained so one bad delivery
// cannot take the lane down.
func (p *Pool) process(t queuedTask) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(t.ctx).Error("panic in worker task",
				"panic", r,
				"key", t.key)
		}
	}()

	if err := t.fn(t.ctx); err != nil {
		errutil.Handle(t.ctx, err, "worker task failed")
	}
}
