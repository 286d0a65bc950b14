// Package redis shares build artifacts and build locks between actgraph
// processes through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Cache implements toolchain.Cache using Redis.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration of cached artifacts.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for artifacts.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a Redis cache with options.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "actgraph:artifact:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the underlying client.
func (c *Cache) Client() *backend.Client { return c.client }

func (c *Cache) key(digest string) string {
	return c.prefix + digest
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Put stores an artifact under its source digest.
func (c *Cache) Put(ctx context.Context, digest string, artifact []byte) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.key(digest), artifact, c.ttl)

	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	score := float64(time.Now().Add(c.ttl).Unix())
	if c.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: digest})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save artifact to redis: %w", err)
	}
	return nil
}

// Get retrieves an artifact. A missing artifact is not an error.
func (c *Cache) Get(ctx context.Context, digest string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(digest)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get artifact from redis: %w", err)
	}
	return data, true, nil
}

// Delete removes an artifact.
func (c *Cache) Delete(ctx context.Context, digest string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.key(digest))
	pipe.ZRem(ctx, c.indexKey(), digest)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the digests of live artifacts, pruning expired index entries.
func (c *Cache) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired artifacts: %w", err)
	}
	digests, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return digests, nil
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
