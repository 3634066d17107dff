package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// Repository wires together review persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a review row. The unique (product, user) index surfaces
// duplicate submissions as a unique violation.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ListByProduct returns one page of a product's reviews, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]models.Review, string, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Review{}).
		Preload("User").
		Where("product_id = ?", productID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Review
	err = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

type ratingAggregate struct {
	Average float64 `gorm:"column:average"`
	Count   int64   `gorm:"column:count"`
}

// AggregateForProduct computes the mean rating and review count.
func (r *Repository) AggregateForProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, int, error) {
	var agg ratingAggregate
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&agg).
		Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return decimal.NewFromFloat(agg.Average).Round(2), int(agg.Count), nil
}

// WriteProductAggregate stores the recomputed rating back on the product.
func (r *Repository) WriteProductAggregate(ctx context.Context, productID uuid.UUID, average decimal.Decimal, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{
			"average_rating": average,
			"review_count":   count,
		}).
		Error
}
