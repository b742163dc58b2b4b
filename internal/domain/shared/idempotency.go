package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which domain events a handler has already consumed,
// so audit and metrics handlers record each quote or invoice event once even
// when the same event ID is published again.
type IdempotencyStore interface {
	// MarkProcessed claims eventID for ttl. It reports false when another
	// delivery of the same event already claimed it.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}

// IdempotencyConfig controls redelivery suppression for event handlers
type IdempotencyConfig struct {
	// TTL bounds how long a consumed event ID is remembered; a redelivery
	// arriving later is handled again.
	TTL time.Duration

	// Enabled turns suppression off for handlers that are safe to repeat
	Enabled bool
}

// DefaultIdempotencyConfig keeps event IDs for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
