package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
)

// ItemDTO is one purchased line with its frozen unit price and, for
// digital goods, the delivery credentials issued at checkout.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	DownloadURL *string         `json:"downloadUrl,omitempty"`
	LicenseKey  *string         `json:"licenseKey,omitempty"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          uuid.UUID           `json:"userId"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	ShippingAddress map[string]string   `json:"shippingAddress,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []ItemDTO           `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// CreateOrderInput carries the checkout request. The cart is the source
// of truth for what gets ordered; the shipping address and notes ride
// along from the request body.
type CreateOrderInput struct {
	UserID          uuid.UUID
	ShippingAddress map[string]string
	Notes           *string
}

// UpdateStatusInput carries an admin fulfillment transition.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Notes   *string
}

// ListOrdersInput filters the admin order listing.
type ListOrdersInput struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func toItemDTO(item models.OrderItem) ItemDTO {
	dto := ItemDTO{
		ID:          item.ID,
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		Price:       item.Price,
		LineTotal:   item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
		DownloadURL: item.DownloadURL,
		LicenseKey:  item.LicenseKey,
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
	}
	return dto
}

func toOrderDTO(order models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, toItemDTO(item))
	}
	return OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Notes:           order.Notes,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
