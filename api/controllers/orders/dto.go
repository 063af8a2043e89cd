package orders

import (
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/orders"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

type orderItemBody struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

type createOrderBody struct {
	VendorID            uuid.UUID       `json:"vendor_id" validate:"required"`
	Items               []orderItemBody `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress     string          `json:"delivery_address" validate:"required"`
	DeliveryDate        *string         `json:"delivery_date,omitempty"`
	DeliveryTime        *string         `json:"delivery_time,omitempty"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
}

func (b createOrderBody) toInput() (orders.CreateOrderInput, error) {
	in := orders.CreateOrderInput{
		VendorID:            b.VendorID,
		Items:               make([]orders.ItemInput, 0, len(b.Items)),
		DeliveryAddress:     b.DeliveryAddress,
		DeliveryTime:        b.DeliveryTime,
		SpecialInstructions: b.SpecialInstructions,
	}
	for _, it := range b.Items {
		in.Items = append(in.Items, orders.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if b.DeliveryDate != nil {
		d, err := time.Parse(orders.DateLayout, strings.TrimSpace(*b.DeliveryDate))
		if err != nil {
			return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery_date must be YYYY-MM-DD").
				WithDetails(map[string]any{"field": "delivery_date"})
		}
		in.DeliveryDate = &d
	}
	return in, nil
}

type statusBody struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

func parseStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid status").WithDetails(map[string]any{"field": "status", "value": raw})
	}
	return status, nil
}
