package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
)

// UserDTO is the API shape of an account.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	FirstName       *string        `json:"firstName,omitempty"`
	LastName        *string        `json:"lastName,omitempty"`
	ProfileImageURL *string        `json:"profileImageUrl,omitempty"`
	Role            enums.UserRole `json:"role"`
	IsActive        bool           `json:"isActive"`
	LastLoginAt     *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// ResolveInput carries a verified external sign-in event. SubjectID is
// the identity provider's stable id for the account, when it issues
// uuid-shaped subjects.
type ResolveInput struct {
	SubjectID       *uuid.UUID
	Email           string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// UserListResult is one page of accounts for the back office.
type UserListResult struct {
	Users      []UserDTO `json:"users"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// ToUserDTO converts the storage row into the API shape.
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:              user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		ProfileImageURL: user.ProfileImageURL,
		Role:            user.Role,
		IsActive:        user.IsActive,
		LastLoginAt:     user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
	}
	if user.Email != nil {
		dto.Email = *user.Email
	}
	return dto
}
