package laundry

import (
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderItemBody struct {
	LaundryItemID       uuid.UUID `json:"laundry_item_id" validate:"required"`
	Quantity            int       `json:"quantity"`
	SpecialInstructions *string   `json:"special_instructions,omitempty"`
}

type createOrderBody struct {
	LaundryVendorID      uuid.UUID       `json:"laundry_vendor_id" validate:"required"`
	Items                []orderItemBody `json:"items" validate:"required,min=1,dive"`
	PickupAddress        string          `json:"pickup_address" validate:"required"`
	PickupDate           string          `json:"pickup_date" validate:"required"`
	PickupTimeSlot       string          `json:"pickup_time_slot" validate:"required"`
	PickupInstructions   *string         `json:"pickup_instructions,omitempty"`
	DeliveryAddress      *string         `json:"delivery_address,omitempty"`
	DeliveryInstructions *string         `json:"delivery_instructions,omitempty"`
}

func (b createOrderBody) toInput() (laundry.CreateOrderInput, error) {
	pickup, err := parseDate("pickup_date", b.PickupDate)
	if err != nil {
		return laundry.CreateOrderInput{}, err
	}
	items := make([]laundry.OrderItemInput, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, laundry.OrderItemInput{
			LaundryItemID:       it.LaundryItemID,
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	return laundry.CreateOrderInput{
		LaundryVendorID:      b.LaundryVendorID,
		Items:                items,
		PickupAddress:        b.PickupAddress,
		PickupDate:           pickup,
		PickupTimeSlot:       b.PickupTimeSlot,
		PickupInstructions:   b.PickupInstructions,
		DeliveryAddress:      b.DeliveryAddress,
		DeliveryInstructions: b.DeliveryInstructions,
	}, nil
}

type updateOrderBody struct {
	Status                *string `json:"status,omitempty"`
	PickupInstructions    *string `json:"pickup_instructions,omitempty"`
	DeliveryAddress       *string `json:"delivery_address,omitempty"`
	DeliveryInstructions  *string `json:"delivery_instructions,omitempty"`
	EstimatedDeliveryDate *string `json:"estimated_delivery_date,omitempty"`
	EstimatedDeliveryTime *string `json:"estimated_delivery_time,omitempty"`
}

func (b updateOrderBody) toInput() (laundry.UpdateOrderInput, error) {
	in := laundry.UpdateOrderInput{
		PickupInstructions:    b.PickupInstructions,
		DeliveryAddress:       b.DeliveryAddress,
		DeliveryInstructions:  b.DeliveryInstructions,
		EstimatedDeliveryTime: b.EstimatedDeliveryTime,
	}
	if b.Status != nil {
		status, err := parseStatus(*b.Status)
		if err != nil {
			return laundry.UpdateOrderInput{}, err
		}
		in.Status = &status
	}
	if b.EstimatedDeliveryDate != nil {
		d, err := parseDate("estimated_delivery_date", *b.EstimatedDeliveryDate)
		if err != nil {
			return laundry.UpdateOrderInput{}, err
		}
		in.EstimatedDeliveryDate = &d
	}
	return in, nil
}

type paymentBody struct {
	PaymentMethod    string           `json:"payment_method" validate:"required,max=64"`
	PaymentReference *string          `json:"payment_reference,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(laundry.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be YYYY-MM-DD").WithDetails(map[string]any{"field": field})
	}
	return t, nil
}

func parseStatus(raw string) (enums.LaundryOrderStatus, error) {
	status := enums.LaundryOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid status").WithDetails(map[string]any{"field": "status", "value": raw})
	}
	return status, nil
}
