package interfaces

import (
	"context"
)

// DedupeRepository is the idempotency cache keyed by message ID. Entries are
// retained for a bounded window; a delivery replayed after the window expires
// is treated as new.
type DedupeRepository interface {
	// IsNew atomically records the message ID and reports whether it was
	// absent. Concurrent calls racing on the same ID yield exactly one true.
	IsNew(ctx context.Context, messageID string) (bool, error)
}
