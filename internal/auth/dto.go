package auth

import (
	"github.com/communityhub/marketplace-backend/internal/users"
	"github.com/google/uuid"
)

// RegisterRequest is the self-registration payload. Role is always user.
type RegisterRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8"`
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name" validate:"required"`
	Phone           *string `json:"phone,omitempty"`
	ApartmentNumber *string `json:"apartment_number,omitempty"`
	CommunityCode   *string `json:"community_code,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// JoinCommunityRequest moves the caller into the community behind Code.
type JoinCommunityRequest struct {
	CommunityCode string `json:"community_code" validate:"required"`
}

// RefreshRequest carries the refresh token issued with the access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// JoinCommunityResponse confirms the joined community.
type JoinCommunityResponse struct {
	CommunityID   uuid.UUID      `json:"community_id"`
	CommunityName string         `json:"community_name"`
	User          *users.UserDTO `json:"user"`
}
