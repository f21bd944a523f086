package driver_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gofalre.io/storefront/driver"
)

func TestConnectRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("redis container tests are skipped in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client, err := driver.ConnectRedis(ctx, opts.Addr, "", 1, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(ctx, "ping", "pong", 0).Err())
	got, err := client.Get(ctx, "ping").Result()
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestConnectRedisFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	core, logs := observer.New(zap.ErrorLevel)
	client, err := driver.ConnectRedis(ctx, "127.0.0.1:1", "", 0, zap.New(core))
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, 1, logs.FilterMessage("Redis connection error").Len())
}

func TestConnectNATSFailure(t *testing.T) {
	conn, err := driver.ConnectNATS("nats://127.0.0.1:1", zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, conn)
}
