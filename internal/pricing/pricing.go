package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
)

// ErrProductUnavailable marks a cart line whose product has been
// deactivated or removed since it was added.
var ErrProductUnavailable = errors.New("product unavailable")

// ErrOutOfStock marks a cart line asking for more units than the
// product has left.
var ErrOutOfStock = errors.New("out of stock")

// DisplayTaxRate is the flat rate quoted next to cart subtotals. It is
// shown for display only and never folded into order totals.
var DisplayTaxRate = decimal.NewFromFloat(0.08)

// DisplayTax returns the display-only tax estimate for a subtotal,
// rounded to cents.
func DisplayTax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(DisplayTaxRate).Round(2)
}

// Line is one quoted cart line, priced at quote time.
type Line struct {
	ProductID uuid.UUID
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Quote freezes the prices a buyer saw at checkout. Once captured on an
// order it never changes, regardless of later catalog edits.
type Quote struct {
	Lines []Line
	Total decimal.Decimal
}

// BuildQuote computes line totals and the order total from cart lines
// and their current catalog products. Amounts are rounded to cents.
// Every line must reference an active product with enough stock; the
// stock check here reads the rows the caller loaded, so checkout still
// relies on the conditional decrement for concurrent buyers.
func BuildQuote(items []models.CartItem) (Quote, error) {
	quote := Quote{
		Lines: make([]Line, 0, len(items)),
		Total: decimal.Zero,
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.Product == nil || !item.Product.IsActive {
			return Quote{}, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductID)
		}
		if item.Quantity > item.Product.StockCount {
			return Quote{}, fmt.Errorf("%w: %s", ErrOutOfStock, item.ProductID)
		}
		unit := item.Product.Price.Round(2)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		quote.Lines = append(quote.Lines, Line{
			ProductID: item.ProductID,
			UnitPrice: unit,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		quote.Total = quote.Total.Add(lineTotal)
	}
	quote.Total = quote.Total.Round(2)
	return quote, nil
}
