package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the connectivity check made when a client is created
const pingTimeout = 5 * time.Second

// NewRedisClient creates a Redis client and verifies the server answers
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}
