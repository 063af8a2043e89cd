package catalog

import (
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfileDTO is the public shape of a laundry vendor profile.
type ProfileDTO struct {
	ID                 uuid.UUID       `json:"id"`
	VendorID           uuid.UUID       `json:"vendor_id"`
	BusinessName       string          `json:"business_name"`
	Description        *string         `json:"description,omitempty"`
	PickupTimeStart    string          `json:"pickup_time_start"`
	PickupTimeEnd      string          `json:"pickup_time_end"`
	DeliveryTimeHours  int             `json:"delivery_time_hours"`
	MinimumOrderAmount decimal.Decimal `json:"minimum_order_amount"`
	PickupCharge       decimal.Decimal `json:"pickup_charge"`
	DeliveryCharge     decimal.Decimal `json:"delivery_charge"`
	ServiceAreas       []string        `json:"service_areas"`
	IsActive           bool            `json:"is_active"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// UpdateProfileInput carries partial profile edits.
type UpdateProfileInput struct {
	BusinessName       *string          `json:"business_name,omitempty"`
	Description        *string          `json:"description,omitempty"`
	PickupTimeStart    *string          `json:"pickup_time_start,omitempty"`
	PickupTimeEnd      *string          `json:"pickup_time_end,omitempty"`
	DeliveryTimeHours  *int             `json:"delivery_time_hours,omitempty" validate:"omitempty,min=1"`
	MinimumOrderAmount *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	PickupCharge       *decimal.Decimal `json:"pickup_charge,omitempty"`
	DeliveryCharge     *decimal.Decimal `json:"delivery_charge,omitempty"`
	ServiceAreas       []string         `json:"service_areas,omitempty"`
	IsActive           *bool            `json:"is_active,omitempty"`
}

// ItemDTO is the public shape of a laundry item.
type ItemDTO struct {
	ID                 uuid.UUID       `json:"id"`
	LaundryVendorID    uuid.UUID       `json:"laundry_vendor_id"`
	Name               string          `json:"name"`
	Description        *string         `json:"description,omitempty"`
	Category           string          `json:"category"`
	PricePerPiece      decimal.Decimal `json:"price_per_piece"`
	EstimatedTimeHours int             `json:"estimated_time_hours"`
	IsAvailable        bool            `json:"is_available"`
	ImageURL           *string         `json:"image_url,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CreateItemInput is the payload for a new laundry item.
type CreateItemInput struct {
	Name               string          `json:"name" validate:"required"`
	Description        *string         `json:"description,omitempty"`
	Category           string          `json:"category" validate:"required"`
	PricePerPiece      decimal.Decimal `json:"price_per_piece"`
	EstimatedTimeHours int             `json:"estimated_time_hours,omitempty" validate:"omitempty,min=1"`
	ImageURL           *string         `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateItemInput carries partial item edits.
type UpdateItemInput struct {
	Name               *string          `json:"name,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Category           *string          `json:"category,omitempty"`
	PricePerPiece      *decimal.Decimal `json:"price_per_piece,omitempty"`
	EstimatedTimeHours *int             `json:"estimated_time_hours,omitempty" validate:"omitempty,min=1"`
	IsAvailable        *bool            `json:"is_available,omitempty"`
	ImageURL           *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

func trimmed(v *string) any { return strings.TrimSpace(*v) }

func profileFromModel(p *models.LaundryVendor) *ProfileDTO {
	areas := []string(p.ServiceAreas)
	if areas == nil {
		areas = []string{}
	}
	return &ProfileDTO{
		ID:                 p.ID,
		VendorID:           p.VendorID,
		BusinessName:       p.BusinessName,
		Description:        p.Description,
		PickupTimeStart:    p.PickupTimeStart,
		PickupTimeEnd:      p.PickupTimeEnd,
		DeliveryTimeHours:  p.DeliveryTimeHours,
		MinimumOrderAmount: p.MinimumOrderAmount,
		PickupCharge:       p.PickupCharge,
		DeliveryCharge:     p.DeliveryCharge,
		ServiceAreas:       areas,
		IsActive:           p.IsActive,
		UpdatedAt:          p.UpdatedAt,
	}
}

func itemFromModel(i *models.LaundryItem) ItemDTO {
	return ItemDTO{
		ID:                 i.ID,
		LaundryVendorID:    i.LaundryVendorID,
		Name:               i.Name,
		Description:        i.Description,
		Category:           i.Category,
		PricePerPiece:      i.PricePerPiece,
		EstimatedTimeHours: i.EstimatedTimeHours,
		IsAvailable:        i.IsAvailable,
		ImageURL:           i.ImageURL,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}
