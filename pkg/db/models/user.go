package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email           *string        `gorm:"column:email;uniqueIndex"`
	PasswordHash    *string        `gorm:"column:password_hash"`
	FirstName       *string        `gorm:"column:first_name"`
	LastName        *string        `gorm:"column:last_name"`
	ProfileImageURL *string        `gorm:"column:profile_image_url"`
	Role            enums.UserRole `gorm:"column:role;not null;default:'user'"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt     *time.Time     `gorm:"column:last_login_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
