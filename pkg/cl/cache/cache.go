package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cliossg/intake/pkg/cl/logger"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// Get decodes the value at key into dst. found is false on a miss.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
	log    logger.Logger
}

// NewRedis creates a Redis cache. Keys are namespaced with prefix.
func NewRedis(addr, password string, db int, prefix string, log logger.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
		log:    log,
	}
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, log logger.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, log: log}
}

// Start verifies the server is reachable. An unreachable cache is not
// fatal; lookups fall through to the origin.
func (r *Redis) Start(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.log.Warnf("Redis cache unreachable, continuing without it: %v", err)
		return nil
	}
	r.log.Info("Redis cache connected")
	return nil
}

func (r *Redis) Stop(ctx context.Context) error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cannot read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cannot decode cache key %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cannot encode cache value: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cannot write cache key %s: %w", key, err)
	}
	return nil
}

type noop struct{}

func (noop) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (noop) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

// NewNoop returns a cache that never hits.
func NewNoop() Cache {
	return noop{}
}
