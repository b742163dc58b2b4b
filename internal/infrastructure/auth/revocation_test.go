package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisRevocationList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	list := NewRedisRevocationList(client, "")
	issuedAt := time.Now().Add(-time.Minute)

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, client.Set(ctx, DefaultRevocationKeyPrefix+"jti:jti-1", "1", time.Hour).Err())
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	invalidated, err := list.IsUserTokenInvalidated(ctx, "user-1", issuedAt)
	require.NoError(t, err)
	assert.False(t, invalidated, "no cut-off recorded")

	cutoff := strconv.FormatInt(time.Now().Unix(), 10)
	require.NoError(t, client.Set(ctx, DefaultRevocationKeyPrefix+"user:user-1", cutoff, time.Hour).Err())
	invalidated, err = list.IsUserTokenInvalidated(ctx, "user-1", issuedAt)
	require.NoError(t, err)
	assert.True(t, invalidated, "tokens issued before the cut-off are refused")

	invalidated, err = list.IsUserTokenInvalidated(ctx, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, invalidated, "tokens issued after the cut-off stay valid")

	require.NoError(t, client.Set(ctx, DefaultRevocationKeyPrefix+"user:user-2", "not-a-number", time.Hour).Err())
	_, err = list.IsUserTokenInvalidated(ctx, "user-2", issuedAt)
	assert.Error(t, err)
}
