// Package redis provides a Redis-backed answer cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.AnswerCache = (*Cache)(nil)

// pingTimeout bounds the connectivity check in New.
const pingTimeout = 5 * time.Second

// Cache stores answers as plain string values with an expiry.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL (redis://[:password@]host:port/db) and pings it.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %v", domain.ErrConfig, err)
	}
	c := NewWithClient(redis.NewClient(opts))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the cached answer for key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set stores answer under key for ttl. A zero ttl keeps the key forever.
func (c *Cache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, answer, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
