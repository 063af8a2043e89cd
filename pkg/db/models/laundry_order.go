package models

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LaundryOrder is the aggregate root for a laundry pickup. Monetary fields are
// frozen at creation.
type LaundryOrder struct {
	ID                    uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	LaundryVendorID       uuid.UUID                `gorm:"column:laundry_vendor_id;type:uuid;not null;index"`
	OrderNumber           string                   `gorm:"column:order_number;not null;uniqueIndex"`
	PickupAddress         string                   `gorm:"column:pickup_address;not null"`
	PickupDate            time.Time                `gorm:"column:pickup_date;type:date;not null"`
	PickupTimeSlot        string                   `gorm:"column:pickup_time_slot;not null"`
	PickupInstructions    *string                  `gorm:"column:pickup_instructions"`
	DeliveryAddress       string                   `gorm:"column:delivery_address;not null"`
	DeliveryInstructions  *string                  `gorm:"column:delivery_instructions"`
	EstimatedDeliveryDate *time.Time               `gorm:"column:estimated_delivery_date;type:date"`
	EstimatedDeliveryTime *string                  `gorm:"column:estimated_delivery_time"`
	Status                enums.LaundryOrderStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Subtotal              decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	PickupCharge          decimal.Decimal          `gorm:"column:pickup_charge;type:numeric(12,2);not null"`
	DeliveryCharge        decimal.Decimal          `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	TaxAmount             decimal.Decimal          `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalAmount           decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus         enums.PaymentStatus      `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod         *string                  `gorm:"column:payment_method"`
	PaymentReference      *string                  `gorm:"column:payment_reference"`
	RefundPending         bool                     `gorm:"column:refund_pending;not null;default:false"`
	ConfirmedAt           *time.Time               `gorm:"column:confirmed_at"`
	PickedUpAt            *time.Time               `gorm:"column:picked_up_at"`
	ReadyAt               *time.Time               `gorm:"column:ready_at"`
	DeliveredAt           *time.Time               `gorm:"column:delivered_at"`
	CancelledAt           *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Items []LaundryOrderItem `gorm:"foreignKey:LaundryOrderID"`
}

// LaundryOrderItem snapshots the catalog entry at order time.
type LaundryOrderItem struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	LaundryOrderID      uuid.UUID       `gorm:"column:laundry_order_id;type:uuid;not null;index"`
	LaundryItemID       uuid.UUID       `gorm:"column:laundry_item_id;type:uuid;not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	UnitPrice           decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice          decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	SpecialInstructions *string         `gorm:"column:special_instructions"`
	ItemName            string          `gorm:"column:item_name;not null"`
	ItemCategory        string          `gorm:"column:item_category;not null"`
	ItemDescription     *string         `gorm:"column:item_description"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}
