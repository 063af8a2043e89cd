package orders

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of delivery dates.
const DateLayout = "2006-01-02"

// VendorRef is the slice of a vendor the order flow needs.
type VendorRef struct {
	ID          uuid.UUID        `gorm:"column:id"`
	Name        string           `gorm:"column:name"`
	Type        enums.VendorType `gorm:"column:type"`
	CommunityID uuid.UUID        `gorm:"column:community_id"`
	AccountID   *uuid.UUID       `gorm:"column:admin_id"`
	IsActive    bool             `gorm:"column:is_active"`
}

// ItemInput is one requested product line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything needed to place a product order.
type CreateOrderInput struct {
	VendorID            uuid.UUID
	Items               []ItemInput
	DeliveryAddress     string
	DeliveryDate        *time.Time
	DeliveryTime        *string
	SpecialInstructions *string
}

// ListOrdersInput holds the optional list filters supplied by the caller.
type ListOrdersInput struct {
	Status   *enums.OrderStatus
	VendorID *uuid.UUID
}

// OrderFilter is the resolved repository filter. A nil slice does not filter;
// an empty one matches nothing.
type OrderFilter struct {
	UserID    *uuid.UUID
	VendorIDs []uuid.UUID
	Status    *enums.OrderStatus
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type HistoryDTO struct {
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedBy uuid.UUID         `json:"changed_by"`
	Notes     *string           `json:"notes,omitempty"`
	At        time.Time         `json:"at"`
}

// OrderDTO is the public shape of a product order.
type OrderDTO struct {
	ID                  uuid.UUID         `json:"id"`
	OrderNumber         string            `json:"order_number"`
	UserID              uuid.UUID         `json:"user_id"`
	VendorID            uuid.UUID         `json:"vendor_id"`
	Status              enums.OrderStatus `json:"status"`
	DeliveryAddress     string            `json:"delivery_address"`
	DeliveryDate        *string           `json:"delivery_date,omitempty"`
	DeliveryTime        *string           `json:"delivery_time,omitempty"`
	SpecialInstructions *string           `json:"special_instructions,omitempty"`
	Subtotal            decimal.Decimal   `json:"subtotal"`
	TaxAmount           decimal.Decimal   `json:"tax_amount"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	ConfirmedAt         *time.Time        `json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	Items               []OrderItemDTO    `json:"items,omitempty"`
	History             []HistoryDTO      `json:"history,omitempty"`
}

// OrderFromModel maps a persisted order to its DTO.
func OrderFromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		UserID:              o.UserID,
		VendorID:            o.VendorID,
		Status:              o.Status,
		DeliveryAddress:     o.DeliveryAddress,
		DeliveryTime:        o.DeliveryTime,
		SpecialInstructions: o.SpecialInstructions,
		Subtotal:            o.Subtotal,
		TaxAmount:           o.TaxAmount,
		TotalAmount:         o.TotalAmount,
		ConfirmedAt:         o.ConfirmedAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	if o.DeliveryDate != nil {
		d := o.DeliveryDate.Format(DateLayout)
		dto.DeliveryDate = &d
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	for _, h := range o.History {
		dto.History = append(dto.History, HistoryDTO{
			From:      h.FromStatus,
			To:        h.ToStatus,
			ChangedBy: h.ChangedBy,
			Notes:     h.Notes,
			At:        h.CreatedAt,
		})
	}
	return dto
}
