package cache

import (
	"context"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSequenceKeyPrefix prefixes every document counter key
const DefaultSequenceKeyPrefix = "garage:sequence:"

// RedisCounterStore implements invoicing.CounterStore with Redis INCR.
// Keys look like garage:sequence:<tenant>:<kind>. A number drawn by a
// transaction that later rolls back is not given back.
type RedisCounterStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisCounterStore creates a counter store on an existing client
func NewRedisCounterStore(client redis.Cmdable, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = DefaultSequenceKeyPrefix
	}
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix}
}

// NextValue atomically increments and returns the counter of a series
func (s *RedisCounterStore) NextValue(ctx context.Context, tenantID uuid.UUID, kind invoicing.DocumentKind) (int64, error) {
	value, err := s.client.Incr(ctx, s.key(tenantID, kind)).Result()
	if err != nil {
		return 0, shared.NewUnavailableError("document sequence store unavailable", err)
	}
	return value, nil
}

// Current returns the last value handed out for a series, 0 when none was
func (s *RedisCounterStore) Current(ctx context.Context, tenantID uuid.UUID, kind invoicing.DocumentKind) (int64, error) {
	value, err := s.client.Get(ctx, s.key(tenantID, kind)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, shared.NewUnavailableError("document sequence store unavailable", err)
	}
	return value, nil
}

func (s *RedisCounterStore) key(tenantID uuid.UUID, kind invoicing.DocumentKind) string {
	return s.keyPrefix + tenantID.String() + ":" + kind.String()
}

var _ invoicing.CounterStore = (*RedisCounterStore)(nil)
