package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem snapshots one purchased line. Price is the unit price the
// buyer saw at checkout; DownloadURL and LicenseKey carry the digital
// delivery credentials issued for this line.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int             `gorm:"column:quantity;not null;default:1"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	DownloadURL *string         `gorm:"column:download_url"`
	LicenseKey  *string         `gorm:"column:license_key"`
	Product     *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
