package models

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a product order placed with a non-laundry vendor. Monetary fields
// are frozen at creation.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string            `gorm:"column:order_number;not null;uniqueIndex"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	VendorID            uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	DeliveryAddress     string            `gorm:"column:delivery_address;not null"`
	DeliveryDate        *time.Time        `gorm:"column:delivery_date;type:date"`
	DeliveryTime        *string           `gorm:"column:delivery_time"`
	SpecialInstructions *string           `gorm:"column:special_instructions"`
	Subtotal            decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount           decimal.Decimal   `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalAmount         decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ConfirmedAt         *time.Time        `gorm:"column:confirmed_at"`
	CompletedAt         *time.Time        `gorm:"column:completed_at"`
	CancelledAt         *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items   []OrderItem          `gorm:"foreignKey:OrderID"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID"`
}

// OrderItem snapshots the product at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusHistory records one committed transition.
type OrderStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ChangedBy  uuid.UUID         `gorm:"column:changed_by;type:uuid;not null"`
	Notes      *string           `gorm:"column:notes"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
