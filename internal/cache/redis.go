package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis adapts a shared Redis instance to the Cache capability. Errors are
// never propagated: a failed read is a miss, a failed write or delete is
// logged and counted.
type Redis struct {
	client  *redis.Client
	dropped atomic.Uint64
}

// RedisConfig holds connection settings for the shared cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.swallow("get", key, err)
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.swallow("set", key, err)
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.swallow("del", keys[0], err)
	}
}

func (r *Redis) Dropped() uint64 {
	return r.dropped.Load()
}

// Close releases the underlying Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// swallow records a cache failure without surfacing it to the caller. The
// cache must never fail a request, but the failure still has to be visible
// to operators.
func (r *Redis) swallow(op, key string, err error) {
	r.dropped.Add(1)
	slog.Warn("cache operation dropped", "op", op, "key", key, "error", err)
}

// Ensure Redis implements Cache
var _ Cache = (*Redis)(nil)
