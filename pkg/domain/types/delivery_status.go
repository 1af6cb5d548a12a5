package types

// DeliveryStatus represents the gateway-reported status of an outbound message
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusUnknown   DeliveryStatus = "unknown"
)

// AllDeliveryStatuses returns all valid delivery statuses
func AllDeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{
		DeliveryStatusSent,
		DeliveryStatusDelivered,
		DeliveryStatusRead,
		DeliveryStatusFailed,
		DeliveryStatusUnknown,
	}
}

// IsValid checks if the delivery status is valid
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusSent,
		DeliveryStatusDelivered,
		DeliveryStatusRead,
		DeliveryStatusFailed,
		DeliveryStatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the delivery status
func (s DeliveryStatus) String() string {
	return string(s)
}

// ParseDeliveryStatus maps a gateway status string to a DeliveryStatus.
// Unrecognized values map to DeliveryStatusUnknown so that gateway schema
// drift never fails normalization.
func ParseDeliveryStatus(s string) DeliveryStatus {
	status := DeliveryStatus(s)
	if !status.IsValid() {
		return DeliveryStatusUnknown
	}
	return status
}
