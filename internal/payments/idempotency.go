package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type eventStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookEventKey(provider, eventID string) string
	Del(ctx context.Context, keys ...string) error
}

// EventGuard deduplicates gateway events by id so redelivered webhooks
// settle an order at most once.
type EventGuard struct {
	store    eventStore
	ttl      time.Duration
	provider string
}

// NewEventGuard wires the guard to a redis-backed store.
func NewEventGuard(store eventStore, ttl time.Duration, provider string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &EventGuard{
		store:    store,
		ttl:      ttl,
		provider: provider,
	}, nil
}

// CheckAndMark records the event id and reports whether it was already seen.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.WebhookEventKey(g.provider, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set event key: %w", err)
	}
	return !set, nil
}

// Delete releases the event id so a failed handler can be retried.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.WebhookEventKey(g.provider, eventID)
	return g.store.Del(ctx, key)
}
