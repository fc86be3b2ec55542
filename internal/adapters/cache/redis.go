// Package cache stores computed calendar views in Redis.
//
// Entries are namespaced under a generation number kept in a single counter
// key. Invalidate bumps the counter, orphaning every entry of the previous
// generation until its TTL expires; no key scans are needed. Get reports the
// generation it read and Set writes under that generation, so a value
// computed before an Invalidate lands in the orphaned namespace.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how stale a cached calendar can get without invalidation.
const DefaultTTL = 5 * time.Minute

// Config holds Redis connection configuration.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration
	DialTimeout time.Duration
}

// commander is the subset of *redis.Client the cache uses.
type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisCache is a JSON value cache with generation-based invalidation.
type RedisCache struct {
	client commander
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects and pings Redis.
// PRE: cfg.Addr is host:port
// POST: Returns a ready cache or the ping error
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "gymdesk:calendar"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (c *RedisCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:g%d:%s", c.prefix, gen, key)
}

// Get decodes the cached value for key into dest and returns the generation
// it read. Pass that generation to Set when filling a miss.
// POST: Returns false with nil error on a miss
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("cache generation: %w", err)
	}
	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, gen, nil
	}
	if err != nil {
		return false, gen, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, gen, fmt.Errorf("cache decode: %w", err)
	}
	return true, gen, nil
}

// Set stores value under key in generation gen.
// PRE: gen was returned by Get for the read that missed
func (c *RedisCache) Set(ctx context.Context, key string, gen int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate starts a new generation; earlier entries are never read again.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Ping checks the connection for health reporting.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
