package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	pkgerrors "github.com/gadgethub/storefront-backend/pkg/errors"
)

type stubSettler struct {
	calls []orders.PaymentResultInput
	err   error
}

func (s *stubSettler) MarkPaymentResult(_ context.Context, input orders.PaymentResultInput) error {
	s.calls = append(s.calls, input)
	return s.err
}

type memoryEventStore struct {
	keys map[string]bool
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{keys: map[string]bool{}}
}

func (m *memoryEventStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryEventStore) WebhookEventKey(provider, eventID string) string {
	return "gh:webhook:" + provider + ":" + eventID
}

func (m *memoryEventStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func TestHandleEventSettlesPayment(t *testing.T) {
	settler := &stubSettler{}
	svc, err := NewService(settler)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	orderID := uuid.New()

	err = svc.HandleEvent(context.Background(), &Event{
		ID:   "evt_1",
		Type: EventTypePaymentSucceeded,
		Data: EventData{OrderID: orderID, PaymentRef: "pi_abc"},
	})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 1 {
		t.Fatalf("expected one settlement, got %d", len(settler.calls))
	}
	call := settler.calls[0]
	if call.OrderID != orderID || call.Result != enums.PaymentStatusPaid {
		t.Fatalf("unexpected settlement %+v", call)
	}
	if call.PaymentRef == nil || *call.PaymentRef != "pi_abc" {
		t.Fatalf("expected payment ref to pass through, got %v", call.PaymentRef)
	}

	err = svc.HandleEvent(context.Background(), &Event{
		ID:   "evt_2",
		Type: EventTypePaymentFailed,
		Data: EventData{OrderID: orderID},
	})
	if err != nil {
		t.Fatalf("handle failed event: %v", err)
	}
	if settler.calls[1].Result != enums.PaymentStatusFailed {
		t.Fatalf("expected failed result, got %s", settler.calls[1].Result)
	}
	if settler.calls[1].PaymentRef != nil {
		t.Fatal("expected no payment ref when absent")
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	settler := &stubSettler{}
	svc, err := NewService(settler)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	err = svc.HandleEvent(context.Background(), &Event{ID: "evt_3", Type: "customer.updated"})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 0 {
		t.Fatalf("expected no settlement, got %d", len(settler.calls))
	}
}

func TestHandleEventRequiresOrderID(t *testing.T) {
	svc, err := NewService(&stubSettler{})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	err = svc.HandleEvent(context.Background(), &Event{ID: "evt_4", Type: EventTypePaymentSucceeded})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEventGuardDeduplicates(t *testing.T) {
	guard, err := NewEventGuard(newMemoryEventStore(), time.Hour, Provider)
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if seen {
		t.Fatal("expected first delivery to be fresh")
	}

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatal("expected redelivery to be flagged")
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("check after delete: %v", err)
	}
	if seen {
		t.Fatal("expected released event to be retryable")
	}
}
