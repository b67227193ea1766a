package indexing

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func exerciseFlag(t *testing.T, flag Flag) {
	t.Helper()
	ctx := context.Background()

	running, err := flag.Get(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, flag.Set(ctx, true))
	running, err = flag.Get(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, flag.Set(ctx, false))
	running, err = flag.Get(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, flag.Set(ctx, true))
	require.NoError(t, flag.Reset(ctx))
	running, err = flag.Get(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func Test_MemoryFlag(t *testing.T) {
	exerciseFlag(t, &MemoryFlag{})
}

func Test_RedisFlagDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	assert.Equal(t, DefaultFlagTTL, NewRedisFlag(client, "treesearch:bulk", 0).ttl)
	assert.Equal(t, time.Minute, NewRedisFlag(client, "treesearch:bulk", time.Minute).ttl)
}

func Test_RedisFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %s", err)
		}
	}()

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	t.Run("set get reset", func(t *testing.T) {
		exerciseFlag(t, NewRedisFlag(client, "treesearch:bulk", time.Minute))
	})

	t.Run("shared between instances", func(t *testing.T) {
		writer := NewRedisFlag(client, "treesearch:shared", time.Minute)
		reader := NewRedisFlag(client, "treesearch:shared", time.Minute)

		require.NoError(t, writer.Set(ctx, true))
		running, err := reader.Get(ctx)
		require.NoError(t, err)
		assert.True(t, running)
		require.NoError(t, reader.Reset(ctx))
	})

	t.Run("expires", func(t *testing.T) {
		flag := NewRedisFlag(client, "treesearch:expiring", time.Second)
		require.NoError(t, flag.Set(ctx, true))

		ttl, err := client.TTL(ctx, "treesearch:expiring").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		assert.Eventually(t, func() bool {
			running, err := flag.Get(ctx)
			return err == nil && !running
		}, 5*time.Second, 100*time.Millisecond)
	})
}
