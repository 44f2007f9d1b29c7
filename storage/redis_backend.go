package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"busflow/internal/status"
	"busflow/utils"
)

// RedisBackend is the preferred high-capacity backend. A circuit
// breaker keeps a flapping Redis from stalling every flow operation:
// once open, calls fail fast and the fallback chain serves instead.
type RedisBackend struct {
	client  *redis.Client
	breaker *utils.CircuitBreaker
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{
		client:  client,
		breaker: utils.NewCircuitBreaker("redis"),
	}
}

func (b *RedisBackend) Name() string { return "redis" }

// execute routes the call through the breaker, surfacing an open
// circuit as ErrBackendDown so callers fall through to the next layer.
func (b *RedisBackend) execute(ctx context.Context, req func(ctx context.Context) error) error {
	err := b.breaker.Execute(ctx, req)
	if errors.Is(err, utils.ErrCircuitOpen) {
		return fmt.Errorf("%w: %v", status.ErrBackendDown, err)
	}
	return err
}

func (b *RedisBackend) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	found := true
	err := b.execute(ctx, func(ctx context.Context) error {
		data, err := b.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// A miss is a healthy response, not a backend failure.
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		value = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.execute(ctx, func(ctx context.Context) error {
		return b.client.Set(ctx, key, value, ttl).Err()
	})
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.execute(ctx, func(ctx context.Context) error {
		return b.client.Del(ctx, key).Err()
	})
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.execute(ctx, func(ctx context.Context) error {
		result, err := b.client.Keys(ctx, prefix+"*").Result()
		if err != nil {
			return err
		}
		keys = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
