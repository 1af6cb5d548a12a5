package interfaces

import (
	"context"
)

// Repository defines the interface for data persistence
type Repository interface {
	Document() DocumentRepository
	Dedupe() DedupeRepository

	// Ping probes the backend for liveness
	Ping(ctx context.Context) error

	// Close releases backend connections
	Close() error
}
