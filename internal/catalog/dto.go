package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// CategoryDTO is the wire shape for a storefront category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
}

// ProductSummary is the listing card shape returned by browse endpoints.
type ProductSummary struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	Price            decimal.Decimal `json:"price"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	ImageURL         string          `json:"imageUrl"`
	StockCount       int             `json:"stockCount"`
	InStock          bool            `json:"inStock"`
	IsFeatured       bool            `json:"isFeatured"`
	IsLimitedEdition bool            `json:"isLimitedEdition"`
	AverageRating    decimal.Decimal `json:"averageRating"`
	ReviewCount      int             `json:"reviewCount"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ProductDetail extends the summary with full listing content.
type ProductDetail struct {
	ProductSummary
	Description *string      `json:"description,omitempty"`
	Images      []string     `json:"images"`
	IsDigital   bool         `json:"isDigital"`
	ViewCount   int          `json:"viewCount"`
	SalesCount  int          `json:"salesCount"`
	Category    *CategoryDTO `json:"category,omitempty"`
}

// ListProductsInput captures browse filters. IncludeInactive is
// reserved for the back office; storefront listings only see active
// products.
type ListProductsInput struct {
	CategorySlug    string
	Featured        *bool
	Limited         *bool
	Search          string
	IncludeInactive bool
	Pagination      pagination.Params
}

// ProductListResult is one page of product summaries.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name             string
	Slug             string
	Description      *string
	Price            decimal.Decimal
	CategoryID       *uuid.UUID
	ImageURL         string
	Images           []string
	StockCount       int
	IsDigital        bool
	DownloadURL      *string
	LicenseKey       *string
	IsFeatured       bool
	IsLimitedEdition bool
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Name             *string
	Slug             *string
	Description      *string
	Price            *decimal.Decimal
	CategoryID       *uuid.UUID
	ImageURL         *string
	Images           *[]string
	StockCount       *int
	IsDigital        *bool
	DownloadURL      *string
	LicenseKey       *string
	IsFeatured       *bool
	IsLimitedEdition *bool
	IsActive         *bool
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description *string
	ImageURL    *string
}

func toCategoryDTO(category models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		ImageURL:    category.ImageURL,
	}
}

func toProductSummary(product models.Product) ProductSummary {
	return ProductSummary{
		ID:               product.ID,
		Name:             product.Name,
		Slug:             product.Slug,
		Price:            product.Price,
		CategoryID:       product.CategoryID,
		ImageURL:         product.ImageURL,
		StockCount:       product.StockCount,
		InStock:          product.InStock(),
		IsFeatured:       product.IsFeatured,
		IsLimitedEdition: product.IsLimitedEdition,
		AverageRating:    product.AverageRating,
		ReviewCount:      product.ReviewCount,
		IsActive:         product.IsActive,
		CreatedAt:        product.CreatedAt,
	}
}

func toProductDetail(product models.Product) *ProductDetail {
	detail := &ProductDetail{
		ProductSummary: toProductSummary(product),
		Description:    product.Description,
		Images:         product.Images,
		IsDigital:      product.IsDigital,
		ViewCount:      product.ViewCount,
		SalesCount:     product.SalesCount,
	}
	if detail.Images == nil {
		detail.Images = []string{}
	}
	if product.Category != nil {
		category := toCategoryDTO(*product.Category)
		detail.Category = &category
	}
	return detail
}
