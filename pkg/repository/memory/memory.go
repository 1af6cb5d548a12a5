package memory

import (
	"context"
	"time"

	"github.com/talaria-bot/talaria/pkg/domain/interfaces"
	"github.com/talaria-bot/talaria/pkg/domain/model"
)

// Memory is an in-process Repository for tests and single-instance
// development runs. The dedupe cache is local to the process, so a
// multi-instance deployment needs a shared backend instead.
type Memory struct {
	document *documentRepository
	dedupe   *dedupeRepository
}

var _ interfaces.Repository = &Memory{}

// Option configures a Memory repository
type Option func(*config)

type config struct {
	dimension    int
	dedupeSize   int
	dedupeWindow time.Duration
}

// WithDimension sets the embedding dimension of the document index
func WithDimension(dimension int) Option {
	return func(c *config) {
		c.dimension = dimension
	}
}

// WithDedupeSize bounds the number of message IDs retained for dedupe
func WithDedupeSize(size int) Option {
	return func(c *config) {
		c.dedupeSize = size
	}
}

// WithDedupeWindow bounds how long a message ID is remembered
func WithDedupeWindow(window time.Duration) Option {
	return func(c *config) {
		c.dedupeWindow = window
	}
}

func New(options ...Option) *Memory {
	cfg := &config{
		dimension:    model.DefaultEmbeddingDimension,
		dedupeSize:   10000,
		dedupeWindow: 24 * time.Hour,
	}
	for _, opt := range options {
		opt(cfg)
	}

	return &Memory{
		document: newDocumentRepository(cfg.dimension),
		dedupe:   newDedupeRepository(cfg.dedupeSize, cfg.dedupeWindow),
	}
}

func (m *Memory) Document() interfaces.DocumentRepository {
	return m.document
}

func (m *Memory) Dedupe() interfaces.DedupeRepository {
	return m.dedupe
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}
