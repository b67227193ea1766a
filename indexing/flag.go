package indexing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flag signals that a bulk build is running.
//
// The flag is advisory: it never blocks. Incremental indexing consults it
// and skips its work while it is set, the build sets it on start and resets
// it when done.
type Flag interface {
	Set(ctx context.Context, running bool) error
	Get(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
}

// MemoryFlag is a Flag shared within one process.
type MemoryFlag struct {
	running atomic.Bool
}

func (f *MemoryFlag) Set(_ context.Context, running bool) error {
	f.running.Store(running)
	return nil
}

func (f *MemoryFlag) Get(context.Context) (bool, error) {
	return f.running.Load(), nil
}

func (f *MemoryFlag) Reset(context.Context) error {
	f.running.Store(false)
	return nil
}

// DefaultFlagTTL bounds how long a RedisFlag stays set when the build that
// set it never resets it.
const DefaultFlagTTL = 6 * time.Hour

// RedisFlag is a Flag shared between processes through a Redis key. The key
// expires after its TTL, so a crashed build does not suppress incremental
// indexing forever.
type RedisFlag struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisFlag returns a flag stored under key. A ttl of 0 uses
// DefaultFlagTTL.
func NewRedisFlag(client redis.UniversalClient, key string, ttl time.Duration) *RedisFlag {
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}

	return &RedisFlag{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (f *RedisFlag) Set(ctx context.Context, running bool) error {
	if !running {
		return f.Reset(ctx)
	}

	if err := f.client.Set(ctx, f.key, "1", f.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set bulk indexing flag: %w", err)
	}
	return nil
}

func (f *RedisFlag) Get(ctx context.Context) (bool, error) {
	n, err := f.client.Exists(ctx, f.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read bulk indexing flag: %w", err)
	}
	return n > 0, nil
}

func (f *RedisFlag) Reset(ctx context.Context) error {
	if err := f.client.Del(ctx, f.key).Err(); err != nil {
		return fmt.Errorf("failed to reset bulk indexing flag: %w", err)
	}
	return nil
}
