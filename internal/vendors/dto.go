package vendors

import (
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/users"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
)

// VendorDTO is the API shape of a vendor.
type VendorDTO struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Type            enums.VendorType  `json:"type"`
	Description     *string           `json:"description,omitempty"`
	CommunityID     uuid.UUID         `json:"community_id"`
	AdminID         *uuid.UUID        `json:"admin_id,omitempty"`
	ContactEmail    *string           `json:"contact_email,omitempty"`
	ContactPhone    *string           `json:"contact_phone,omitempty"`
	Address         *string           `json:"address,omitempty"`
	OperatingHours  map[string]string `json:"operating_hours,omitempty"`
	IsActive        bool              `json:"is_active"`
	LaundryVendorID *uuid.UUID        `json:"laundry_vendor_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AccountInput describes the login provisioned for a vendor. An empty
// Password asks the service to generate one.
type AccountInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=12"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// CreateVendorInput is the master-only vendor onboarding payload.
type CreateVendorInput struct {
	Name           string            `json:"name" validate:"required"`
	Type           enums.VendorType  `json:"type" validate:"required"`
	CommunityID    uuid.UUID         `json:"community_id" validate:"required"`
	Description    *string           `json:"description,omitempty"`
	ContactEmail   *string           `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone   *string           `json:"contact_phone,omitempty"`
	Address        *string           `json:"address,omitempty"`
	OperatingHours map[string]string `json:"operating_hours,omitempty"`
	Account        AccountInput      `json:"account" validate:"required"`
}

// Credentials are returned once, in the create response only.
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Generated bool   `json:"generated"`
}

// CreateVendorResult bundles the vendor, its account and the issued credentials.
type CreateVendorResult struct {
	Vendor      *VendorDTO     `json:"vendor"`
	Account     *users.UserDTO `json:"account"`
	Credentials Credentials    `json:"credentials"`
}

// UpdateVendorInput carries partial vendor edits.
type UpdateVendorInput struct {
	Name           *string           `json:"name,omitempty"`
	Description    *string           `json:"description,omitempty"`
	ContactEmail   *string           `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone   *string           `json:"contact_phone,omitempty"`
	Address        *string           `json:"address,omitempty"`
	OperatingHours map[string]string `json:"operating_hours,omitempty"`
	IsActive       *bool             `json:"is_active,omitempty"`
}

func (in UpdateVendorInput) updates() map[string]any {
	out := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			out[column] = strings.TrimSpace(*v)
		}
	}
	set("name", in.Name)
	set("description", in.Description)
	set("contact_email", in.ContactEmail)
	set("contact_phone", in.ContactPhone)
	set("address", in.Address)
	if in.OperatingHours != nil {
		out["operating_hours"] = in.OperatingHours
	}
	if in.IsActive != nil {
		out["is_active"] = *in.IsActive
	}
	return out
}

// ListFilter narrows vendor listings.
type ListFilter struct {
	CommunityID *uuid.UUID
	Type        *enums.VendorType
}

func FromModel(v *models.Vendor) *VendorDTO {
	if v == nil {
		return nil
	}
	return &VendorDTO{
		ID:             v.ID,
		Name:           v.Name,
		Type:           v.Type,
		Description:    v.Description,
		CommunityID:    v.CommunityID,
		AdminID:        v.AdminID,
		ContactEmail:   v.ContactEmail,
		ContactPhone:   v.ContactPhone,
		Address:        v.Address,
		OperatingHours: v.OperatingHours,
		IsActive:       v.IsActive,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
}
