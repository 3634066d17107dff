package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
)

type orderSettler interface {
	MarkPaymentResult(ctx context.Context, input orders.PaymentResultInput) error
}

// Service maps gateway webhook events onto order payment outcomes.
type Service struct {
	orders orderSettler
}

// NewService constructs the webhook dispatch service.
func NewService(settler orderSettler) (*Service, error) {
	if settler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order settler required")
	}
	return &Service{orders: settler}, nil
}

// HandleEvent settles the referenced order for payment events and ignores
// everything else.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}

	var result enums.PaymentStatus
	switch event.Type {
	case EventTypePaymentSucceeded:
		result = enums.PaymentStatusPaid
	case EventTypePaymentFailed:
		result = enums.PaymentStatusFailed
	default:
		return nil
	}

	if event.Data.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing from event")
	}

	input := orders.PaymentResultInput{
		OrderID: event.Data.OrderID,
		Result:  result,
	}
	if ref := strings.TrimSpace(event.Data.PaymentRef); ref != "" {
		input.PaymentRef = &ref
	}
	return s.orders.MarkPaymentResult(ctx, input)
}
