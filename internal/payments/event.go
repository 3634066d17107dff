package payments

import "github.com/google/uuid"

// Event types delivered by the payment gateway.
const (
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
)

// Provider identifies the gateway namespace for idempotency keys.
const Provider = "gateway"

// Event is the gateway webhook envelope.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the order reference inside a gateway event.
type EventData struct {
	OrderID    uuid.UUID `json:"orderId"`
	PaymentRef string    `json:"paymentRef,omitempty"`
}
