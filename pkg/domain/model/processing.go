package model

import (
	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// ProcessingResult summarizes how far an inbound event got through its
// lifecycle. For a processed event the state is terminal (Acknowledged,
// Discarded or Failed); a delivery handed to the worker pool reports
// Received with a queueing summary.
type ProcessingResult struct {
	MessageID string
	EventType types.EventType
	State     types.ProcessingState
	Detail    string // human-readable note for logs (e.g. "duplicate delivery")
	ReplyID   string // gateway message ID of the dispatched reply, if any
	Hits      int    // number of passages that cleared the similarity threshold
}

// Discarded reports whether the event was dropped without processing
func (r *ProcessingResult) Discarded() bool {
	return r.State == types.ProcessingStateDiscarded
}

// Failed reports whether the event reached the failed terminal state
func (r *ProcessingResult) Failed() bool {
	return r.State == types.ProcessingStateFailed
}
