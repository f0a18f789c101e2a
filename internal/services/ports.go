package services

import "context"

// IdempotencyStore guards create-order against replays of the same Idempotency-Key.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// StatusCache remembers recent gateway status lookups.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string) error
	GetStatus(ctx context.Context, orderID string) (string, bool, error)
	DeleteStatus(ctx context.Context, orderID string) error
}

// EventPublisher publishes order events. Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}
