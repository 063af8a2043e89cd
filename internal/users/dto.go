package users

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           *string        `json:"phone,omitempty"`
	Role            enums.UserRole `json:"role"`
	CommunityID     *uuid.UUID     `json:"community_id,omitempty"`
	ApartmentNumber *string        `json:"apartment_number,omitempty"`
	IsActive        bool           `json:"is_active"`
	LastLoginAt     *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Phone           *string
	Role            enums.UserRole
	CommunityID     *uuid.UUID
	ApartmentNumber *string
	IsActive        *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		Role:            u.Role,
		CommunityID:     u.CommunityID,
		ApartmentNumber: u.ApartmentNumber,
		IsActive:        u.IsActive,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}

	return &models.User{
		Email:           c.Email,
		PasswordHash:    c.PasswordHash,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Phone:           c.Phone,
		Role:            role,
		CommunityID:     c.CommunityID,
		ApartmentNumber: c.ApartmentNumber,
		IsActive:        isActive,
	}
}
