package types

// ProcessingState represents the lifecycle state of a single inbound event.
// An event moves Received -> Normalized -> Searched -> Dispatched -> Acknowledged,
// with Discarded (duplicate or unprocessable) and Failed as alternative terminals.
type ProcessingState string

const (
	ProcessingStateReceived     ProcessingState = "received"
	ProcessingStateNormalized   ProcessingState = "normalized"
	ProcessingStateDiscarded    ProcessingState = "discarded"
	ProcessingStateSearched     ProcessingState = "searched"
	ProcessingStateDispatched   ProcessingState = "dispatched"
	ProcessingStateAcknowledged ProcessingState = "acknowledged"
	ProcessingStateFailed       ProcessingState = "failed"
)

// AllProcessingStates returns all valid processing states
func AllProcessingStates() []ProcessingState {
	return []ProcessingState{
		ProcessingStateReceived,
		ProcessingStateNormalized,
		ProcessingStateDiscarded,
		ProcessingStateSearched,
		ProcessingStateDispatched,
		ProcessingStateAcknowledged,
		ProcessingStateFailed,
	}
}

// IsValid checks if the processing state is valid
func (s ProcessingState) IsValid() bool {
	switch s {
	case ProcessingStateReceived,
		ProcessingStateNormalized,
		ProcessingStateDiscarded,
		ProcessingStateSearched,
		ProcessingStateDispatched,
		ProcessingStateAcknowledged,
		ProcessingStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the state ends an event's lifecycle
func (s ProcessingState) IsTerminal() bool {
	switch s {
	case ProcessingStateDiscarded,
		ProcessingStateAcknowledged,
		ProcessingStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the processing state
func (s ProcessingState) String() string {
	return string(s)
}
