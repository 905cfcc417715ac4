// Package rediscache caches carts in Redis in front of the primary store.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/muratkomurcu/october4mama/internal/domain/cart"
)

// DefaultTTL is the base lifetime of a cached cart.
const DefaultTTL = 15 * time.Minute

var _ cart.Cache = (*CartCache)(nil)

// CartCache stores carts as JSON under cart:<userID>. Entries get a random
// extra lifetime of up to four minutes so they do not expire in waves.
type CartCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  func() time.Duration
}

// NewCartCache returns a cache over client. A zero ttl means DefaultTTL.
func NewCartCache(client redis.UniversalClient, ttl time.Duration) *CartCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CartCache{
		client:  client,
		baseTTL: ttl,
		jitter:  func() time.Duration { return time.Duration(rand.IntN(5)) * time.Minute },
	}
}

func (c *CartCache) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var out cart.Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &out, nil
}

func (c *CartCache) Set(ctx context.Context, v *cart.Cart) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(v.UserID), data, c.baseTTL+c.jitter()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *CartCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable. It backs the readiness check.
func (c *CartCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func cacheKey(userID string) string {
	return "cart:" + userID
}
