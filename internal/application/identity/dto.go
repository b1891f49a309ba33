package identity

import (
	"time"

	"github.com/store/backend/internal/domain/identity"
)

// AuthenticateInput carries login credentials
type AuthenticateInput struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=100"`
}

// ChangePasswordInput carries the current and the new password
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=4,max=100"`
}

// TokenResponse is the body returned by authenticate and change-password
type TokenResponse struct {
	IDToken   string    `json:"id_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountResponse is the current user as returned by GET /api/account
type AccountResponse struct {
	Login       string    `json:"login"`
	Email       string    `json:"email,omitempty"`
	Activated   bool      `json:"activated"`
	Authorities []string  `json:"authorities"`
	CreatedDate time.Time `json:"createdDate"`
}

// ToAccountResponse converts a user to its response shape
func ToAccountResponse(u *identity.User) AccountResponse {
	authorities := u.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return AccountResponse{
		Login:       u.Login,
		Email:       u.Email,
		Activated:   u.Activated,
		Authorities: authorities,
		CreatedDate: u.CreatedAt,
	}
}
