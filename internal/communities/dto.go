package communities

import (
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommunityDTO is the API shape of a community.
type CommunityDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"community_code"`
	Description *string   `json:"description,omitempty"`
	Address     *string   `json:"address,omitempty"`
	City        *string   `json:"city,omitempty"`
	State       *string   `json:"state,omitempty"`
	Country     string    `json:"country"`
	PostalCode  *string   `json:"postal_code,omitempty"`
	AdminName   *string   `json:"admin_name,omitempty"`
	AdminEmail  *string   `json:"admin_email,omitempty"`
	AdminPhone  *string   `json:"admin_phone,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCommunityInput is the payload for a new community.
type CreateCommunityInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	AdminName   *string `json:"admin_name,omitempty"`
	AdminEmail  *string `json:"admin_email,omitempty" validate:"omitempty,email"`
	AdminPhone  *string `json:"admin_phone,omitempty"`
}

// UpdateCommunityInput carries partial edits; nil fields are left untouched.
type UpdateCommunityInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	State       *string `json:"state,omitempty"`
	Country     *string `json:"country,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	AdminName   *string `json:"admin_name,omitempty"`
	AdminEmail  *string `json:"admin_email,omitempty" validate:"omitempty,email"`
	AdminPhone  *string `json:"admin_phone,omitempty"`
}

func (in UpdateCommunityInput) updates() map[string]any {
	out := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			out[column] = strings.TrimSpace(*v)
		}
	}
	set("name", in.Name)
	set("description", in.Description)
	set("address", in.Address)
	set("city", in.City)
	set("state", in.State)
	set("country", in.Country)
	set("postal_code", in.PostalCode)
	set("admin_name", in.AdminName)
	set("admin_email", in.AdminEmail)
	set("admin_phone", in.AdminPhone)
	return out
}

// Stats summarises activity inside one community.
type Stats struct {
	CommunityID   uuid.UUID       `json:"community_id" gorm:"column:community_id"`
	CommunityName string          `json:"community_name" gorm:"column:community_name"`
	VendorCount   int64           `json:"vendor_count" gorm:"column:vendor_count"`
	UserCount     int64           `json:"user_count" gorm:"column:user_count"`
	OrderCount    int64           `json:"order_count" gorm:"column:order_count"`
	Revenue       decimal.Decimal `json:"revenue" gorm:"column:revenue"`
}

func FromModel(c *models.Community) *CommunityDTO {
	if c == nil {
		return nil
	}
	return &CommunityDTO{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		Address:     c.Address,
		City:        c.City,
		State:       c.State,
		Country:     c.Country,
		PostalCode:  c.PostalCode,
		AdminName:   c.AdminName,
		AdminEmail:  c.AdminEmail,
		AdminPhone:  c.AdminPhone,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromModels(rows []models.Community) []CommunityDTO {
	out := make([]CommunityDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
