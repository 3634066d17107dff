package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/enums"
)

// Order captures a completed checkout with its price totals frozen at
// creation time.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status                enums.OrderStatus   `gorm:"column:status;size:50;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;size:50;not null;default:'pending'"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	ShippingAddress       map[string]string   `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Notes                 *string             `gorm:"column:notes"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
