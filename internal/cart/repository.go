package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/types"
)

// Repository wires together cart persistence helpers.
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

func ownerScope(q *gorm.DB, owner types.Identity) *gorm.DB {
	if owner.UserID != nil {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("session_id = ?", *owner.SessionID)
}

// ListItems returns the owner's cart lines with products, oldest first.
func (r *Repository) ListItems(ctx context.Context, owner types.Identity) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := ownerScope(r.db.WithContext(ctx), owner).
		Preload("Product").
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindItemByID loads a single cart line scoped to its owner.
func (r *Repository) FindItemByID(ctx context.Context, owner types.Identity, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := ownerScope(r.db.WithContext(ctx), owner).
		First(&item, "id = ?", itemID).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// IncrementQuantity atomically adds delta to an existing line. Zero rows
// affected means the owner has no line for this product yet.
func (r *Repository) IncrementQuantity(ctx context.Context, owner types.Identity, productID uuid.UUID, delta int) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx).Model(&models.CartItem{}), owner).
		Where("product_id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	return result.RowsAffected, result.Error
}

// InsertItem creates a new cart line.
func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SetQuantity overwrites the quantity on a line.
func (r *Repository) SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity", quantity).
		Error
}

// DeleteItem removes a line scoped to its owner.
func (r *Repository) DeleteItem(ctx context.Context, owner types.Identity, itemID uuid.UUID) (int64, error) {
	result := ownerScope(r.db.WithContext(ctx), owner).
		Where("id = ?", itemID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// DeleteAll clears every line the owner holds.
func (r *Repository) DeleteAll(ctx context.Context, owner types.Identity) error {
	return ownerScope(r.db.WithContext(ctx), owner).
		Delete(&models.CartItem{}).
		Error
}

// ReassignToUser moves one session line to the user's cart.
func (r *Repository) ReassignToUser(ctx context.Context, itemID uuid.UUID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"user_id": userID, "session_id": nil}).
		Error
}
