package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList answers whether a verified token was revoked before it
// expired. Entries are written by the identity service on logout.
type RevocationList interface {
	// IsRevoked checks a single token by its JWT ID
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// IsUserTokenInvalidated reports whether every token of the user issued
	// at or before a cut-off has been invalidated
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// DefaultRevocationKeyPrefix is shared with the identity service
const DefaultRevocationKeyPrefix = "token:blacklist:"

// RedisRevocationList reads revocations from Redis:
// <prefix>jti:<jti> marks one token and <prefix>user:<id> holds a Unix cut-off.
type RedisRevocationList struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisRevocationList creates a revocation list on an existing client
func NewRedisRevocationList(client redis.Cmdable, keyPrefix string) *RedisRevocationList {
	if keyPrefix == "" {
		keyPrefix = DefaultRevocationKeyPrefix
	}
	return &RedisRevocationList{client: client, keyPrefix: keyPrefix}
}

// IsRevoked checks a single token by its JWT ID
func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.keyPrefix+"jti:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// IsUserTokenInvalidated compares the token issue time with the user's cut-off
func (l *RedisRevocationList) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := l.client.Get(ctx, l.keyPrefix+"user:"+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp %q: %w", raw, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// InMemoryRevocationList is a process-local RevocationList
type InMemoryRevocationList struct {
	mu      sync.RWMutex
	tokens  map[string]struct{}
	cutoffs map[string]time.Time
}

// NewInMemoryRevocationList creates an empty list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{
		tokens:  make(map[string]struct{}),
		cutoffs: make(map[string]time.Time),
	}
}

// Revoke marks one token as revoked
func (l *InMemoryRevocationList) Revoke(jti string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[jti] = struct{}{}
}

// InvalidateUser revokes every token of the user issued at or before cutoff
func (l *InMemoryRevocationList) InvalidateUser(userID string, cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cutoffs[userID] = cutoff
}

// IsRevoked checks a single token by its JWT ID
func (l *InMemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tokens[jti]
	return ok, nil
}

// IsUserTokenInvalidated compares the token issue time with the user's cut-off
func (l *InMemoryRevocationList) IsUserTokenInvalidated(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cutoff, ok := l.cutoffs[userID]
	return ok && !issuedAt.After(cutoff), nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*InMemoryRevocationList)(nil)
)
