package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a storefront listing. Prices are stored as
// numeric(10,2); AverageRating and ReviewCount are denormalized from
// the reviews table.
type Product struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name             string          `gorm:"column:name;size:200;not null"`
	Slug             string          `gorm:"column:slug;size:200;not null;uniqueIndex"`
	Description      *string         `gorm:"column:description"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CategoryID       *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	ImageURL         string          `gorm:"column:image_url;not null"`
	Images           []string        `gorm:"column:images;type:jsonb;serializer:json"`
	StockCount       int             `gorm:"column:stock_count;not null;default:0"`
	IsDigital        bool            `gorm:"column:is_digital;not null;default:true"`
	DownloadURL      *string         `gorm:"column:download_url"`
	LicenseKey       *string         `gorm:"column:license_key"`
	IsFeatured       bool            `gorm:"column:is_featured;not null;default:false"`
	IsLimitedEdition bool            `gorm:"column:is_limited_edition;not null;default:false"`
	ViewCount        int             `gorm:"column:view_count;not null;default:0"`
	AverageRating    decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	ReviewCount      int             `gorm:"column:review_count;not null;default:0"`
	SalesCount       int             `gorm:"column:sales_count;not null;default:0"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	Category         *Category       `gorm:"foreignKey:CategoryID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InStock reports whether the product can currently be added to carts.
func (p Product) InStock() bool {
	return p.StockCount > 0
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
