package reviews

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}, &models.Review{})
	if err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	svc, err := NewService(NewRepository(conn), productFinder{conn}, purchaseFinder{conn}, db.FromConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

type productFinder struct {
	conn *gorm.DB
}

func (f productFinder) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := f.conn.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

type purchaseFinder struct {
	conn *gorm.DB
}

func (f purchaseFinder) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := f.conn.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ?", userID, productID).
		Count(&count).
		Error
	return count > 0, err
}

func mustCreateProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     "Game Cartridge",
		Slug:     fmt.Sprintf("cartridge-%s", uuid.NewString()),
		Price:    decimal.NewFromFloat(19.99),
		ImageURL: "https://cdn.example.com/cart.png",
		Images:   []string{},
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustCreateUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("buyer-%s@example.com", uuid.NewString())
	user := &models.User{Email: &email, Role: "user"}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateOrderWithLine(t *testing.T, conn *gorm.DB, userID, productID uuid.UUID) {
	t.Helper()
	order := &models.Order{
		OrderNumber: fmt.Sprintf("GH-20250601-%s", uuid.NewString()[:6]),
		UserID:      userID,
		TotalAmount: decimal.NewFromFloat(19.99),
		Status:      "completed",
		Items: []models.OrderItem{
			{ProductID: productID, Quantity: 1, Price: decimal.NewFromFloat(19.99)},
		},
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func TestSubmitRecomputesProductAggregate(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn)
	ratings := []int{5, 3, 4}
	for _, rating := range ratings {
		user := mustCreateUser(t, conn)
		if _, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: rating}); err != nil {
			t.Fatalf("submit rating %d: %v", rating, err)
		}
	}

	var reloaded models.Product
	if err := conn.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.ReviewCount != 3 {
		t.Fatalf("expected review count 3, got %d", reloaded.ReviewCount)
	}
	if !reloaded.AverageRating.Equal(decimal.NewFromFloat(4.00)) {
		t.Fatalf("expected average 4.00, got %s", reloaded.AverageRating)
	}
}

func TestSubmitRejectsSecondReviewFromSameBuyer(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn)
	user := mustCreateUser(t, conn)

	if _, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: 5}); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: 1})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second review, got %v", err)
	}

	var reloaded models.Product
	if err := conn.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.ReviewCount != 1 || !reloaded.AverageRating.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("aggregate drifted after rejected duplicate: count=%d avg=%s", reloaded.ReviewCount, reloaded.AverageRating)
	}
}

func TestSubmitValidatesRatingAndProduct(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := mustCreateUser(t, conn)
	product := mustCreateProduct(t, conn)

	_, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: 0})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for rating 0, got %v", err)
	}

	_, err = svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: 6})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for rating 6, got %v", err)
	}

	_, err = svc.Submit(ctx, SubmitReviewInput{ProductID: uuid.New(), UserID: user.ID, Rating: 4})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestSubmitMarksVerifiedPurchase(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn)
	buyer := mustCreateUser(t, conn)
	browser := mustCreateUser(t, conn)
	mustCreateOrderWithLine(t, conn, buyer.ID, product.ID)

	fromBuyer, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: buyer.ID, Rating: 5})
	if err != nil {
		t.Fatalf("buyer review: %v", err)
	}
	if !fromBuyer.IsVerifiedPurchase {
		t.Fatalf("expected buyer review to be verified")
	}

	fromBrowser, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: browser.ID, Rating: 3})
	if err != nil {
		t.Fatalf("browser review: %v", err)
	}
	if fromBrowser.IsVerifiedPurchase {
		t.Fatalf("expected non-buyer review to be unverified")
	}
}

func TestListByProductNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn)
	other := mustCreateProduct(t, conn)
	for i := 0; i < 3; i++ {
		user := mustCreateUser(t, conn)
		if _, err := svc.Submit(ctx, SubmitReviewInput{ProductID: product.ID, UserID: user.ID, Rating: 4}); err != nil {
			t.Fatalf("submit review: %v", err)
		}
	}
	stray := mustCreateUser(t, conn)
	if _, err := svc.Submit(ctx, SubmitReviewInput{ProductID: other.ID, UserID: stray.ID, Rating: 2}); err != nil {
		t.Fatalf("submit stray review: %v", err)
	}

	result, err := svc.ListByProduct(ctx, ListReviewsInput{ProductID: product.ID, Pagination: pagination.Params{}})
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(result.Reviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(result.Reviews))
	}
	for _, review := range result.Reviews {
		if review.ProductID != product.ID {
			t.Fatalf("leaked review for another product: %+v", review)
		}
	}
}
