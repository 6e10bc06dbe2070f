package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"heard-backend/internal/features/profile/models"
	rplatform "heard-backend/internal/platform/redis"
)

// ProfileCache provides Redis-based caching for profiles.
type ProfileCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewProfileCache(client *rplatform.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func (c *ProfileCache) key(id string) string { return fmt.Sprintf("profile:id:%s", id) }

// Get returns the cached profile, or (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, id string) (*models.Profile, error) {
	v, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var p models.Profile
	if err := json.Unmarshal(v, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set stores the profile under its id key.
func (c *ProfileCache) Set(ctx context.Context, p *models.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(p.ID), b, c.ttl).Err()
}

// Invalidate removes the cached entry for the profile.
func (c *ProfileCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
