package payloads

import (
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LaundryOrderCreatedEvent is emitted once a laundry order and its items are stored.
type LaundryOrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	CommunityID uuid.UUID       `json:"community_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// LaundryOrderStatusChangedEvent is emitted for every committed transition.
type LaundryOrderStatusChangedEvent struct {
	OrderID  uuid.UUID                `json:"order_id"`
	VendorID uuid.UUID                `json:"vendor_id"`
	From     enums.LaundryOrderStatus `json:"from"`
	To       enums.LaundryOrderStatus `json:"to"`
}

// RefundRequiredEvent flags a cancelled order that was already paid.
type RefundRequiredEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderCreatedEvent is emitted once a product order and its items are stored.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	CommunityID uuid.UUID       `json:"community_id"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStatusChangedEvent is emitted for every committed product order
// transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	VendorID uuid.UUID         `json:"vendor_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Notes    *string           `json:"notes,omitempty"`
}

// PaymentRecordedEvent is emitted when a payment reaches paid.
type PaymentRecordedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
}

// PaymentRefundedEvent is emitted when a paid payment is refunded.
type PaymentRefundedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// VendorCreatedEvent is emitted when a vendor and its login are provisioned.
type VendorCreatedEvent struct {
	VendorID    uuid.UUID        `json:"vendor_id"`
	AccountID   uuid.UUID        `json:"account_id"`
	CommunityID uuid.UUID        `json:"community_id"`
	VendorType  enums.VendorType `json:"vendor_type"`
}
