package enums

import "fmt"

// LaundryOrderStatus tracks the lifecycle of a laundry order.
type LaundryOrderStatus string

const (
	LaundryOrderStatusPending   LaundryOrderStatus = "pending"
	LaundryOrderStatusConfirmed LaundryOrderStatus = "confirmed"
	LaundryOrderStatusPickedUp  LaundryOrderStatus = "picked_up"
	LaundryOrderStatusReady     LaundryOrderStatus = "ready"
	LaundryOrderStatusDelivered LaundryOrderStatus = "delivered"
	LaundryOrderStatusCancelled LaundryOrderStatus = "cancelled"
)

var validLaundryOrderStatuses = []LaundryOrderStatus{
	LaundryOrderStatusPending,
	LaundryOrderStatusConfirmed,
	LaundryOrderStatusPickedUp,
	LaundryOrderStatusReady,
	LaundryOrderStatusDelivered,
	LaundryOrderStatusCancelled,
}

// LaundryOrderStatuses returns every status in lifecycle order.
func LaundryOrderStatuses() []LaundryOrderStatus {
	out := make([]LaundryOrderStatus, len(validLaundryOrderStatuses))
	copy(out, validLaundryOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s LaundryOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LaundryOrderStatus.
func (s LaundryOrderStatus) IsValid() bool {
	for _, candidate := range validLaundryOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are accepted.
func (s LaundryOrderStatus) IsTerminal() bool {
	return s == LaundryOrderStatusDelivered || s == LaundryOrderStatusCancelled
}

// ParseLaundryOrderStatus converts raw input into a LaundryOrderStatus.
func ParseLaundryOrderStatus(value string) (LaundryOrderStatus, error) {
	for _, candidate := range validLaundryOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid laundry order status %q", value)
}
