package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a buyer rating for a product. One review per user per
// product; the product's AverageRating and ReviewCount are recomputed
// whenever a review is written.
type Review struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	UserID             uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	Rating             int       `gorm:"column:rating;not null"`
	Title              *string   `gorm:"column:title;size:200"`
	Comment            *string   `gorm:"column:comment"`
	IsVerifiedPurchase bool      `gorm:"column:is_verified_purchase;not null;default:false"`
	HelpfulCount       int       `gorm:"column:helpful_count;not null;default:0"`
	User               *User     `gorm:"foreignKey:UserID"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
