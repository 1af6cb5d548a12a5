package types

// EventType represents the canonical classification of an inbound webhook event
type EventType string

const (
	EventTypeMessageReceived       EventType = "message_received"
	EventTypeDeliveryStatusUpdated EventType = "delivery_status_updated"
	EventTypeReadStatusUpdated     EventType = "read_status_updated"
	EventTypeUnknown               EventType = "unknown"
)

// AllEventTypes returns all valid event types
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeMessageReceived,
		EventTypeDeliveryStatusUpdated,
		EventTypeReadStatusUpdated,
		EventTypeUnknown,
	}
}

// IsValid checks if the event type is valid
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeMessageReceived,
		EventTypeDeliveryStatusUpdated,
		EventTypeReadStatusUpdated,
		EventTypeUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type
func (t EventType) String() string {
	return string(t)
}
