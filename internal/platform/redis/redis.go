// Package redis opens the connection backing the profile cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client embeds the go-redis client so cache code takes this project's
// type instead of the driver's.
type Client struct {
	*redis.Client
}

// Open connects and verifies the connection with a ping. The profile
// cache degrades gracefully at runtime, but a dead Redis at startup is
// a configuration error worth failing on.
func Open(ctx context.Context, addr, password string, db int) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &Client{Client: c}, nil
}
