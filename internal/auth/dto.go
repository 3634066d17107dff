package auth

import (
	"github.com/gadgethub/storefront-backend/internal/identity"
)

// RegisterInput carries a new email/password signup. SessionID names the
// anonymous cart to fold into the new account, when one exists.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	SessionID string
}

// LoginInput carries an email/password sign-in.
type LoginInput struct {
	Email     string
	Password  string
	SessionID string
}

// RefreshInput carries the expired access token plus the refresh token
// tied to it.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is the token pair handed to a signed-in client.
type AuthResult struct {
	User         identity.UserDTO `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}
