// Package cache keeps recently signed download URLs in Redis so repeat
// playback requests within the TTL skip re-signing.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type SignedURLCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSignedURLCache(client *redis.Client, prefix string, ttl time.Duration) *SignedURLCache {
	return &SignedURLCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SignedURLCache) key(objectKey string) string {
	return fmt.Sprintf("%s:signed:%s", c.prefix, objectKey)
}

// Get returns the cached URL with its remaining validity. Redis outages
// degrade to a cache miss, as does an entry whose TTL can no longer be
// read.
func (c *SignedURLCache) Get(ctx context.Context, objectKey string) (string, time.Duration, bool) {
	k := c.key(objectKey)
	url, err := c.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return "", 0, false
	}
	remaining, err := c.client.TTL(ctx, k).Result()
	if err != nil || remaining <= 0 {
		return "", 0, false
	}
	return url, remaining, true
}

// Set stores the URL for slightly less than the signature TTL so a
// cached URL never outlives its signature.
func (c *SignedURLCache) Set(ctx context.Context, objectKey, url string) {
	ttl := c.ttl - 30*time.Second
	if ttl <= 0 {
		ttl = c.ttl
	}
	_ = c.client.Set(ctx, c.key(objectKey), url, ttl).Err()
}
