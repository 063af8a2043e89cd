package laundry

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorProfile joins a laundry profile with the vendor that owns it.
type VendorProfile struct {
	ID                 uuid.UUID       `gorm:"column:id"`
	VendorID           uuid.UUID       `gorm:"column:vendor_id"`
	CommunityID        uuid.UUID       `gorm:"column:community_id"`
	AccountID          *uuid.UUID      `gorm:"column:admin_id"`
	BusinessName       string          `gorm:"column:business_name"`
	ProfileActive      bool            `gorm:"column:profile_active"`
	VendorActive       bool            `gorm:"column:vendor_active"`
	MinimumOrderAmount decimal.Decimal `gorm:"column:minimum_order_amount"`
	PickupCharge       decimal.Decimal `gorm:"column:pickup_charge"`
	DeliveryCharge     decimal.Decimal `gorm:"column:delivery_charge"`
}

// Active reports whether the vendor accepts new orders.
func (p VendorProfile) Active() bool {
	return p.ProfileActive && p.VendorActive
}

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	LaundryItemID       uuid.UUID
	Quantity            int
	SpecialInstructions *string
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	LaundryVendorID      uuid.UUID
	Items                []OrderItemInput
	PickupAddress        string
	PickupDate           time.Time
	PickupTimeSlot       string
	PickupInstructions   *string
	DeliveryAddress      *string
	DeliveryInstructions *string
}

// UpdateOrderInput is a partial update. Status, when set, runs through the
// lifecycle; the remaining fields are detail edits.
type UpdateOrderInput struct {
	Status                *enums.LaundryOrderStatus
	PickupInstructions    *string
	DeliveryAddress       *string
	DeliveryInstructions  *string
	EstimatedDeliveryDate *time.Time
	EstimatedDeliveryTime *string
}

func (in UpdateOrderInput) detailUpdates() map[string]any {
	updates := map[string]any{}
	if in.PickupInstructions != nil {
		updates["pickup_instructions"] = *in.PickupInstructions
	}
	if in.DeliveryAddress != nil {
		updates["delivery_address"] = *in.DeliveryAddress
	}
	if in.DeliveryInstructions != nil {
		updates["delivery_instructions"] = *in.DeliveryInstructions
	}
	if in.EstimatedDeliveryDate != nil {
		updates["estimated_delivery_date"] = *in.EstimatedDeliveryDate
	}
	if in.EstimatedDeliveryTime != nil {
		updates["estimated_delivery_time"] = *in.EstimatedDeliveryTime
	}
	return updates
}

// ListOrdersInput holds the optional list filters supplied by the caller.
type ListOrdersInput struct {
	Status          *enums.LaundryOrderStatus
	LaundryVendorID *uuid.UUID
}

// OrderFilter is the resolved repository filter. Empty fields do not filter.
type OrderFilter struct {
	UserID           *uuid.UUID
	LaundryVendorIDs []uuid.UUID
	Status           *enums.LaundryOrderStatus
}

// OrderItemDTO is the public shape of an order line.
type OrderItemDTO struct {
	ID                  uuid.UUID       `json:"id"`
	LaundryItemID       uuid.UUID       `json:"laundry_item_id"`
	ItemName            string          `json:"item_name"`
	ItemCategory        string          `json:"item_category"`
	ItemDescription     *string         `json:"item_description,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
}

// OrderDTO is the public shape of a laundry order. Money serializes as
// decimal strings.
type OrderDTO struct {
	ID                    uuid.UUID                `json:"id"`
	OrderNumber           string                   `json:"order_number"`
	UserID                uuid.UUID                `json:"user_id"`
	LaundryVendorID       uuid.UUID                `json:"laundry_vendor_id"`
	Status                enums.LaundryOrderStatus `json:"status"`
	PickupAddress         string                   `json:"pickup_address"`
	PickupDate            string                   `json:"pickup_date"`
	PickupTimeSlot        string                   `json:"pickup_time_slot"`
	PickupInstructions    *string                  `json:"pickup_instructions,omitempty"`
	DeliveryAddress       string                   `json:"delivery_address"`
	DeliveryInstructions  *string                  `json:"delivery_instructions,omitempty"`
	EstimatedDeliveryDate *string                  `json:"estimated_delivery_date,omitempty"`
	EstimatedDeliveryTime *string                  `json:"estimated_delivery_time,omitempty"`
	Subtotal              decimal.Decimal          `json:"subtotal"`
	PickupCharge          decimal.Decimal          `json:"pickup_charge"`
	DeliveryCharge        decimal.Decimal          `json:"delivery_charge"`
	TaxAmount             decimal.Decimal          `json:"tax_amount"`
	TotalAmount           decimal.Decimal          `json:"total_amount"`
	PaymentStatus         enums.PaymentStatus      `json:"payment_status"`
	PaymentMethod         *string                  `json:"payment_method,omitempty"`
	PaymentReference      *string                  `json:"payment_reference,omitempty"`
	RefundPending         bool                     `json:"refund_pending"`
	ConfirmedAt           *time.Time               `json:"confirmed_at,omitempty"`
	PickedUpAt            *time.Time               `json:"picked_up_at,omitempty"`
	ReadyAt               *time.Time               `json:"ready_at,omitempty"`
	DeliveredAt           *time.Time               `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time               `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
	Items                 []OrderItemDTO           `json:"items,omitempty"`
}

// DateLayout is the wire format of pickup and delivery dates.
const DateLayout = "2006-01-02"

// OrderFromModel maps a persisted order to its DTO.
func OrderFromModel(o *models.LaundryOrder) OrderDTO {
	dto := OrderDTO{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		UserID:                o.UserID,
		LaundryVendorID:       o.LaundryVendorID,
		Status:                o.Status,
		PickupAddress:         o.PickupAddress,
		PickupDate:            o.PickupDate.Format(DateLayout),
		PickupTimeSlot:        o.PickupTimeSlot,
		PickupInstructions:    o.PickupInstructions,
		DeliveryAddress:       o.DeliveryAddress,
		DeliveryInstructions:  o.DeliveryInstructions,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		Subtotal:              o.Subtotal,
		PickupCharge:          o.PickupCharge,
		DeliveryCharge:        o.DeliveryCharge,
		TaxAmount:             o.TaxAmount,
		TotalAmount:           o.TotalAmount,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		PaymentReference:      o.PaymentReference,
		RefundPending:         o.RefundPending,
		ConfirmedAt:           o.ConfirmedAt,
		PickedUpAt:            o.PickedUpAt,
		ReadyAt:               o.ReadyAt,
		DeliveredAt:           o.DeliveredAt,
		CancelledAt:           o.CancelledAt,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if o.EstimatedDeliveryDate != nil {
		d := o.EstimatedDeliveryDate.Format(DateLayout)
		dto.EstimatedDeliveryDate = &d
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:                  it.ID,
			LaundryItemID:       it.LaundryItemID,
			ItemName:            it.ItemName,
			ItemCategory:        it.ItemCategory,
			ItemDescription:     it.ItemDescription,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			TotalPrice:          it.TotalPrice,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return dto
}
