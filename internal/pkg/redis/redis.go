package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis for the application.
type Client struct {
	rdb *redis.Client
}

// Connect creates a Redis client and verifies connectivity.
func Connect(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Wrap adopts an existing go-redis client (used by tests with miniredis).
func Wrap(rdb *redis.Client) *Client { return &Client{rdb: rdb} }

// Raw returns the underlying redis.Client for advanced usage.
func (c *Client) Raw() *redis.Client { return c.rdb }

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Cooldown arms a cooldown window. It returns false with the remaining wait when
// the window is still active, true when this call armed it.
func (c *Client) Cooldown(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	armed, err := c.rdb.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, 0, err
	}
	if armed {
		return true, 0, nil
	}
	left, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil || left < 0 {
		left = window
	}
	return false, left, nil
}
