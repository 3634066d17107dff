package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/types"
)

// Service exposes cart operations for both anonymous sessions and
// signed-in users.
type Service interface {
	GetCart(ctx context.Context, owner types.Identity) (*CartDTO, error)
	AddToCart(ctx context.Context, owner types.Identity, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, owner types.Identity, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner types.Identity, itemID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, owner types.Identity) error
	MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productReader
	dbClient *db.Client
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productReader, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, products: products, dbClient: dbClient}, nil
}

// GetCart returns the owner's cart with live prices and totals.
func (s *service) GetCart(ctx context.Context, owner types.Identity) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	items, err := s.repo.ListItems(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return toCartDTO(items), nil
}

// AddToCart adds quantity of a product to the owner's cart, merging into
// an existing line when one exists. The upsert is written so two
// concurrent adds for the same product never produce two lines: an
// atomic increment first, an insert when no line matched, and a second
// increment when the insert loses a race on the unique owner+product
// index.
func (s *service) AddToCart(ctx context.Context, owner types.Identity, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.InStock() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is out of stock")
	}

	affected, err := s.repo.IncrementQuantity(ctx, owner, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart line")
	}
	if affected == 0 {
		item := &models.CartItem{
			UserID:    owner.UserID,
			SessionID: owner.SessionID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := s.repo.InsertItem(ctx, item); err != nil {
			if !db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart line")
			}
			// lost the insert race, the line exists now
			if _, err := s.repo.IncrementQuantity(ctx, owner, productID, quantity); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart line after insert race")
			}
		}
	}

	return s.GetCart(ctx, owner)
}

// UpdateQuantity sets the quantity on a line the owner holds. Zero
// removes the line.
func (s *service) UpdateQuantity(ctx context.Context, owner types.Identity, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, itemID)
	}

	item, err := s.repo.FindItemByID(ctx, owner, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.SetQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart quantity")
	}
	return s.GetCart(ctx, owner)
}

// RemoveItem deletes a line the owner holds. Unknown or foreign line ids
// are a no-op: the delete is scoped to the owner, so removing something
// that is not in the cart just returns the cart as it stands.
func (s *service) RemoveItem(ctx context.Context, owner types.Identity, itemID uuid.UUID) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if _, err := s.repo.DeleteItem(ctx, owner, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.GetCart(ctx, owner)
}

// ClearCart removes every line the owner holds.
func (s *service) ClearCart(ctx context.Context, owner types.Identity) error {
	if !owner.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if err := s.repo.DeleteAll(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// MergeOnLogin folds a session cart into the user's cart inside one
// transaction. Lines for products the user already carries have their
// quantities added together; the rest are reassigned to the user.
func (s *service) MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" {
		return nil
	}

	sessionOwner := types.SessionIdentity(sessionID)
	userOwner := types.UserIdentity(userID)

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sessionItems, err := repo.ListItems(ctx, sessionOwner)
		if err != nil {
			return err
		}

		for _, item := range sessionItems {
			affected, err := repo.IncrementQuantity(ctx, userOwner, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected > 0 {
				if _, err := repo.DeleteItem(ctx, sessionOwner, item.ID); err != nil {
					return err
				}
				continue
			}
			if err := repo.ReassignToUser(ctx, item.ID, userID); err != nil {
				if !db.IsUniqueViolation(err, "") {
					return err
				}
				// a user line appeared mid-merge, fold into it instead
				if _, err := repo.IncrementQuantity(ctx, userOwner, item.ProductID, item.Quantity); err != nil {
					return err
				}
				if _, err := repo.DeleteItem(ctx, sessionOwner, item.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge session cart")
	}
	return nil
}
