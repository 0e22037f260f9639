package auth

import (
	"github.com/mcastellanos/fotoescolar-backend/internal/users"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
)

// LoginRequest carries the operator credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the access token and the authenticated profile.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}

// RegisterRequest creates a new operator account. Admin only.
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=10"`
	FullName string         `json:"full_name" validate:"required"`
	Role     enums.UserRole `json:"role" validate:"required"`
}
