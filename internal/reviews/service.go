package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
)

// Service exposes review submission and listing.
type Service interface {
	Submit(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error)
	ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error)
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type purchaseChecker interface {
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo      *Repository
	products  productReader
	purchases purchaseChecker
	dbClient  *db.Client
}

// NewService constructs a review service instance.
func NewService(repo *Repository, products productReader, purchases purchaseChecker, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase checker required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, products: products, purchases: purchases, dbClient: dbClient}, nil
}

// Submit records one review per buyer per product and recomputes the
// product's rating aggregate in the same transaction. A second review
// from the same buyer is rejected rather than averaged in twice.
func (s *service) Submit(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if _, err := s.products.FindProductByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	verified, err := s.purchases.HasPurchased(ctx, input.UserID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}

	review := &models.Review{
		ProductID:          input.ProductID,
		UserID:             input.UserID,
		Rating:             input.Rating,
		Title:              input.Title,
		Comment:            input.Comment,
		IsVerifiedPurchase: verified,
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
			}
			return err
		}
		average, count, err := repo.AggregateForProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		return repo.WriteProductAggregate(ctx, input.ProductID, average, count)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit review")
	}

	dto := toReviewDTO(*review)
	return &dto, nil
}

// ListByProduct returns one page of a product's reviews, newest first.
func (s *service) ListByProduct(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error) {
	rows, nextCursor, err := s.repo.ListByProduct(ctx, input.ProductID, input.Pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	result := &ReviewListResult{
		Reviews:    make([]ReviewDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for _, row := range rows {
		result.Reviews = append(result.Reviews, toReviewDTO(row))
	}
	return result, nil
}
