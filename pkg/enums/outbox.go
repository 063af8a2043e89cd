package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateLaundryOrder OutboxAggregateType = "laundry_order"
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateVendor       OutboxAggregateType = "vendor"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLaundryOrder,
	AggregateOrder,
	AggregatePayment,
	AggregateVendor,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event.
type OutboxEventType string

const (
	EventLaundryOrderCreated       OutboxEventType = "laundry_order.created"
	EventLaundryOrderStatusChanged OutboxEventType = "laundry_order.status_changed"
	EventLaundryOrderRefundNeeded  OutboxEventType = "laundry_order.refund_required"
	EventOrderCreated              OutboxEventType = "order.created"
	EventOrderStatusChanged        OutboxEventType = "order.status_changed"
	EventPaymentRecorded           OutboxEventType = "payment.recorded"
	EventPaymentRefunded           OutboxEventType = "payment.refunded"
	EventVendorCreated             OutboxEventType = "vendor.created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLaundryOrderCreated,
	EventLaundryOrderStatusChanged,
	EventLaundryOrderRefundNeeded,
	EventOrderCreated,
	EventOrderStatusChanged,
	EventPaymentRecorded,
	EventPaymentRefunded,
	EventVendorCreated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
