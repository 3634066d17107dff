package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// Repository wires together order persistence helpers.
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

// Create inserts the order header and its lines in one statement batch.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads an order with its lines and their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber loads an order by its human-facing number.
func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, "order_number = ?", orderNumber).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type orderListQuery struct {
	Pagination pagination.Params
	UserID     *uuid.UUID
	Status     *enums.OrderStatus
}

// ListOrders returns one page of orders, newest first.
func (r *Repository) ListOrders(ctx context.Context, query orderListQuery) ([]models.Order, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Preload("Items.Product")

	if query.UserID != nil {
		qb = qb.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
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

// UpdateStatus writes a fulfillment status and, when provided, notes.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, notes *string) error {
	updates := map[string]any{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// UpdatePaymentStatus writes the payment outcome reported by the gateway.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("payment_status", status).
		Error
}

// DecrementStock takes quantity units off a product's stock. Zero rows
// affected means the product had less stock than requested.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_count >= ?", productID, quantity).
		UpdateColumn("stock_count", gorm.Expr("stock_count - ?", quantity))
	return result.RowsAffected, result.Error
}

// IncrementSalesCount adds quantity units to a product's sales counter.
func (r *Repository) IncrementSalesCount(ctx context.Context, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", quantity)).
		Error
}

// HasPurchased reports whether the user has an order line for the product.
func (r *Repository) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ?", userID, productID).
		Count(&count).
		Error
	return count > 0, err
}
