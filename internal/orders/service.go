package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gadgethub/storefront-backend/internal/cart"
	"github.com/gadgethub/storefront-backend/internal/pricing"
	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/db"
	"github.com/gadgethub/storefront-backend/pkg/db/models"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
	"github.com/gadgethub/storefront-backend/pkg/metrics"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
	"github.com/gadgethub/storefront-backend/pkg/types"
)

const (
	orderNumberPrefix    = "GH"
	orderNumberSuffixLen = 6
	maxOrderNumberTries  = 3
)

// Requester identifies who is asking for an order.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// PaymentResultInput carries a settled payment outcome from the gateway.
type PaymentResultInput struct {
	OrderID    uuid.UUID
	Result     enums.PaymentStatus
	PaymentRef *string
}

// Service exposes checkout and order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, requester Requester, orderID uuid.UUID) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error)
	ListAllOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	MarkPaymentResult(ctx context.Context, input PaymentResultInput) error
}

type service struct {
	repo            *Repository
	cartRepo        *cart.Repository
	dbClient        *db.Client
	metrics         *metrics.OrderMetrics
	trustOnSubmit   bool
	downloadBaseURL string
}

// NewService constructs an order service instance. The metrics argument
// may be nil.
func NewService(repo *Repository, cartRepo *cart.Repository, dbClient *db.Client, orderMetrics *metrics.OrderMetrics, flags config.FeatureFlagsConfig, delivery config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:            repo,
		cartRepo:        cartRepo,
		dbClient:        dbClient,
		metrics:         orderMetrics,
		trustOnSubmit:   flags.TrustOnSubmit,
		downloadBaseURL: delivery.DownloadBaseURL,
	}, nil
}

// Create converts the user's cart into an order inside one transaction:
// quote the cart at current prices, decrement stock, issue delivery
// credentials for digital lines, persist the order with its lines, and
// clear the cart. Any failure rolls the whole checkout back. A collision
// on the generated order number retries the entire transaction with a
// fresh number.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	owner := types.UserIdentity(input.UserID)

	var created *models.Order
	var err error
	for attempt := 0; attempt < maxOrderNumberTries; attempt++ {
		created, err = s.createOnce(ctx, owner, input)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") {
			continue
		}
		break
	}
	if err != nil {
		s.metrics.IncFailure(failureReason(err))
		return nil, coerceError(err, "create order")
	}

	s.metrics.IncCreated()
	dto := toOrderDTO(*created)
	return &dto, nil
}

func (s *service) createOnce(ctx context.Context, owner types.Identity, input CreateOrderInput) (*models.Order, error) {
	var created *models.Order
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.cartRepo.WithTx(tx)

		items, err := carts.ListItems(ctx, owner)
		if err != nil {
			return err
		}
		quote, err := pricing.BuildQuote(items)
		if err != nil {
			if errors.Is(err, pricing.ErrProductUnavailable) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a product in the cart is no longer available")
			}
			if errors.Is(err, pricing.ErrOutOfStock) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a product in the cart is out of stock")
			}
			return err
		}
		if len(quote.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		productsByID := make(map[uuid.UUID]*models.Product, len(items))
		for _, item := range items {
			if item.Product != nil {
				productsByID[item.ProductID] = item.Product
			}
		}

		allDigital := true
		orderLines := make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			product := productsByID[line.ProductID]

			affected, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
			}
			if err := repo.IncrementSalesCount(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}

			orderLine := models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
			}
			if product.IsDigital {
				orderLine.DownloadURL = strptr(s.downloadURLFor(product))
				orderLine.LicenseKey = strptr(newLicenseKey())
			} else {
				allDigital = false
			}
			orderLines = append(orderLines, orderLine)
		}

		status := enums.OrderStatusPending
		paymentStatus := enums.PaymentStatusPending
		if s.trustOnSubmit {
			paymentStatus = enums.PaymentStatusPaid
			if allDigital {
				status = enums.OrderStatusCompleted
			}
		}

		order := &models.Order{
			OrderNumber:     newOrderNumber(time.Now()),
			UserID:          *owner.UserID,
			TotalAmount:     quote.Total,
			Status:          status,
			PaymentStatus:   paymentStatus,
			ShippingAddress: input.ShippingAddress,
			Notes:           input.Notes,
			Items:           orderLines,
		}
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := carts.DeleteAll(ctx, owner); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrder returns an order to its owner or to an admin.
func (s *service) GetOrder(ctx context.Context, requester Requester, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin && order.UserID != requester.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

// ListMyOrders returns one page of the user's orders, newest first.
func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	rows, nextCursor, err := s.repo.ListOrders(ctx, orderListQuery{Pagination: page, UserID: &userID})
	if err != nil {
		return nil, coerceError(err, "list orders")
	}
	return toListResult(rows, nextCursor), nil
}

// ListAllOrders returns one page of every user's orders for the back office.
func (s *service) ListAllOrders(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	rows, nextCursor, err := s.repo.ListOrders(ctx, orderListQuery{Pagination: input.Pagination, Status: input.Status})
	if err != nil {
		return nil, coerceError(err, "list orders")
	}
	return toListResult(rows, nextCursor), nil
}

// UpdateStatus applies an admin fulfillment transition after checking it
// against the order state machine.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !canTransitionOrderStatus(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.Status))
		}
		if requiresPaidOrder(input.Status) && order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
		}
		if err := repo.UpdateStatus(ctx, order.ID, input.Status, input.Notes); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, input.OrderID)
		return err
	})
	if err != nil {
		return nil, coerceError(err, "update order status")
	}
	dto := toOrderDTO(*updated)
	return &dto, nil
}

// MarkPaymentResult records a settled payment outcome from the gateway.
// Replays of the same outcome are no-ops. Digital orders still pending
// fulfillment complete immediately once paid.
func (s *service) MarkPaymentResult(ctx context.Context, input PaymentResultInput) error {
	if input.Result != enums.PaymentStatusPaid && input.Result != enums.PaymentStatusFailed {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment result must be paid or failed")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == input.Result {
			return nil
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already settled")
		}
		if err := repo.UpdatePaymentStatus(ctx, order.ID, input.Result); err != nil {
			return err
		}
		if input.PaymentRef != nil {
			if err := tx.WithContext(ctx).
				Model(&models.Order{}).
				Where("id = ?", order.ID).
				UpdateColumn("stripe_payment_intent_id", *input.PaymentRef).
				Error; err != nil {
				return err
			}
		}
		if input.Result == enums.PaymentStatusPaid && order.Status == enums.OrderStatusPending && isAllDigital(order) {
			return repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, nil)
		}
		return nil
	})
	if err != nil {
		return coerceError(err, "mark payment result")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

var orderStatusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

func canTransitionOrderStatus(from, to enums.OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func requiresPaidOrder(status enums.OrderStatus) bool {
	return status == enums.OrderStatusDelivered || status == enums.OrderStatusCompleted
}

func isAllDigital(order *models.Order) bool {
	if len(order.Items) == 0 {
		return false
	}
	for _, item := range order.Items {
		if item.Product == nil || !item.Product.IsDigital {
			return false
		}
	}
	return true
}

func (s *service) downloadURLFor(product *models.Product) string {
	if product.DownloadURL != nil && *product.DownloadURL != "" {
		return *product.DownloadURL
	}
	return strings.TrimRight(s.downloadBaseURL, "/") + "/" + product.Slug + ".zip"
}

const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), randomSuffix(orderNumberSuffixLen))
}

// newLicenseKey issues a fresh key per order line so revoking one sale
// never revokes another.
func newLicenseKey() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "LICENSE-" + strings.ToUpper(raw[:8])
}

func randomSuffix(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		return strings.ToUpper(raw[:length])
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return string(out)
}

func toListResult(rows []models.Order, nextCursor string) *OrderListResult {
	result := &OrderListResult{
		Orders:     make([]OrderDTO, 0, len(rows)),
		NextCursor: nextCursor,
	}
	for _, row := range rows {
		result.Orders = append(result.Orders, toOrderDTO(row))
	}
	return result
}

func failureReason(err error) string {
	appErr := pkgerrors.As(err)
	if appErr == nil {
		return "store_error"
	}
	switch appErr.Code() {
	case pkgerrors.CodeValidation:
		return "empty_cart"
	case pkgerrors.CodeStateConflict:
		return "insufficient_stock"
	default:
		return "store_error"
	}
}

func coerceError(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func strptr(s string) *string {
	return &s
}
