package events

import (
	"context"
	"time"
)

const (
	DefaultExchange = "subscription_events"

	RoutingKeySubscriptionActivated   = "subscription.activated"
	RoutingKeySubscriptionDeactivated = "subscription.deactivated"
)

// SubscriptionChanged is published after the purchase webhook changed a
// subscription row.
type SubscriptionChanged struct {
	UserID        uint      `json:"user_id"`
	Status        string    `json:"status"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
