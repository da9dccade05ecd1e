//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	c := NewFromClient(goredis.NewClient(opts), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Health(ctx))
	return c
}

func TestClient_Blacklist(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.BlacklistToken(ctx, "jti-1", time.Minute))
	// 已过期的 Token 不写入
	require.NoError(t, c.BlacklistToken(ctx, "jti-2", 0))

	revoked, err := c.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = c.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestClient_CheckRateLimit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "clinic:rate_limit:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := c.CheckRateLimit(ctx, "clinic:rate_limit:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 不同的 key 互不影响
	allowed, err = c.CheckRateLimit(ctx, "clinic:rate_limit:other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
