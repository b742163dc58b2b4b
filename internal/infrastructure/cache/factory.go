package cache

import (
	"fmt"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewCounterStore returns the external document counter selected by the
// sequence backend. It returns nil for the sql backend, in which case numbers
// come from the database transaction that issues the document.
func NewCounterStore(cfg config.SequenceConfig, client *redis.Client) (invoicing.CounterStore, error) {
	switch cfg.Backend {
	case config.SequenceBackendSQL, "":
		return nil, nil
	case config.SequenceBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("sequence backend %q requires a Redis connection", cfg.Backend)
		}
		return NewRedisCounterStore(client, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown sequence backend %q", cfg.Backend)
	}
}

// NewIdempotencyStore returns a Redis-backed store when a client is available
// and an in-memory one otherwise.
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("Using Redis event idempotency store")
		return NewRedisIdempotencyStore(client, "")
	}
	logger.Warn("Redis not configured, event idempotency is tracked per process")
	return NewInMemoryIdempotencyStore()
}
