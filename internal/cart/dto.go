package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gadgethub/storefront-backend/internal/pricing"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
)

// ItemProduct is the product snapshot embedded in each cart line.
type ItemProduct struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"imageUrl"`
	StockCount int             `json:"stockCount"`
	InStock    bool            `json:"inStock"`
}

// ItemDTO is one cart line with its live product data.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   *ItemProduct    `json:"product,omitempty"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartDTO is the full cart with computed totals. Totals always reflect
// current catalog prices; prices only freeze at order creation.
// EstimatedTax is a display figure and never enters order totals.
type CartDTO struct {
	Items        []ItemDTO       `json:"items"`
	ItemCount    int             `json:"itemCount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	EstimatedTax decimal.Decimal `json:"estimatedTax"`
}

func toItemDTO(item models.CartItem) ItemDTO {
	dto := ItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		LineTotal: decimal.Zero,
	}
	if item.Product != nil {
		dto.Product = &ItemProduct{
			ID:         item.Product.ID,
			Name:       item.Product.Name,
			Slug:       item.Product.Slug,
			Price:      item.Product.Price,
			ImageURL:   item.Product.ImageURL,
			StockCount: item.Product.StockCount,
			InStock:    item.Product.InStock(),
		}
		dto.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return dto
}

func toCartDTO(items []models.CartItem) *CartDTO {
	cart := &CartDTO{
		Items:    make([]ItemDTO, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		dto := toItemDTO(item)
		cart.Items = append(cart.Items, dto)
		cart.ItemCount += dto.Quantity
		cart.Subtotal = cart.Subtotal.Add(dto.LineTotal)
	}
	cart.EstimatedTax = pricing.DisplayTax(cart.Subtotal)
	return cart
}
