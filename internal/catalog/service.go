package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
)

// Service exposes storefront catalog operations.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, idOrSlug string) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDetail, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDetail, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// ListProducts returns one page of listings matching the filters.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	query := productListQuery{
		Pagination:      input.Pagination,
		Featured:        input.Featured,
		Limited:         input.Limited,
		Search:          input.Search,
		IncludeInactive: input.IncludeInactive,
	}

	if slug := strings.TrimSpace(input.CategorySlug); slug != "" {
		category, err := s.repo.FindCategoryBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		query.CategoryID = &category.ID
	}

	rows, nextCursor, err := s.repo.ListProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	summaries := make([]ProductSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, toProductSummary(row))
	}
	return &ProductListResult{Products: summaries, NextCursor: nextCursor}, nil
}

// GetProduct resolves a listing by UUID or slug and records the view.
func (s *service) GetProduct(ctx context.Context, idOrSlug string) (*ProductDetail, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identifier is required")
	}

	var (
		product *models.Product
		err     error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = s.repo.FindProductByID(ctx, id)
	} else {
		product, err = s.repo.FindProductBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	// view counter is best effort
	_ = s.repo.IncrementViewCount(ctx, product.ID)

	return toProductDetail(*product), nil
}

// ListCategories returns every category.
func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	dtos := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toCategoryDTO(row))
	}
	return dtos, nil
}

// GetCategoryBySlug resolves a single category by its slug.
func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category slug is required")
	}
	category, err := s.repo.FindCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !category.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	dto := toCategoryDTO(*category)
	return &dto, nil
}

// CreateProduct inserts a new listing.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDetail, error) {
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	if err := s.ensureCategoryExists(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:             strings.TrimSpace(input.Name),
		Slug:             strings.TrimSpace(input.Slug),
		Description:      input.Description,
		Price:            input.Price,
		CategoryID:       input.CategoryID,
		ImageURL:         input.ImageURL,
		Images:           input.Images,
		StockCount:       input.StockCount,
		IsDigital:        input.IsDigital,
		DownloadURL:      input.DownloadURL,
		LicenseKey:       input.LicenseKey,
		IsFeatured:       input.IsFeatured,
		IsLimitedEdition: input.IsLimitedEdition,
	}
	if product.Images == nil {
		product.Images = []string{}
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	return toProductDetail(*created), nil
}

// UpdateProduct applies a partial update to an existing listing.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDetail, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount != nil && *input.StockCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	if input.CategoryID != nil {
		if err := s.ensureCategoryExists(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}

	applyProductUpdates(product, input)

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return toProductDetail(*updated), nil
}

// DeleteProduct deactivates a listing without touching order history.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	affected, err := s.repo.DeleteProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// CreateCategory inserts a new category.
func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        strings.TrimSpace(input.Slug),
		Description: input.Description,
		ImageURL:    input.ImageURL,
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert category")
	}
	dto := toCategoryDTO(*created)
	return &dto, nil
}

func (s *service) ensureCategoryExists(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.repo.FindCategoryByID(ctx, *categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func applyProductUpdates(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		product.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
	if input.StockCount != nil {
		product.StockCount = *input.StockCount
	}
	if input.IsDigital != nil {
		product.IsDigital = *input.IsDigital
	}
	if input.DownloadURL != nil {
		product.DownloadURL = input.DownloadURL
	}
	if input.LicenseKey != nil {
		product.LicenseKey = input.LicenseKey
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.IsLimitedEdition != nil {
		product.IsLimitedEdition = *input.IsLimitedEdition
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}
