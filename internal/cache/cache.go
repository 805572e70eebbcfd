// Package cache provides an optional Redis-backed cache of completed chat
// responses, keyed by the last user message and the model that answered it.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const defaultTTL = 30 * time.Minute

// ResponseCache stores full response texts. A nil *ResponseCache is valid and
// disables caching, mirroring a deployment without Redis configured.
type ResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to the Redis instance named by url. An empty url disables the
// cache (returns nil, nil).
func New(url string) (*ResponseCache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &ResponseCache{rdb: redis.NewClient(opts), ttl: defaultTTL}, nil
}

// Key derives the cache key for a prompt/model pair.
func Key(lastUserMessage, model string) string {
	h := sha256.Sum256([]byte(lastUserMessage))
	return fmt.Sprintf("chat:resp:%s:%x", model, h)
}

// Get returns the cached response for key, if any. Lookup failures are
// logged and reported as misses; the cache is never on the request's
// critical failure path.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.WithFields(log.Fields{
			"event": "cache_get_failed",
			"error": err.Error(),
		}).Warn("Redis lookup failed")
		return "", false
	}
	return val, true
}

// Set stores a completed response. Failures are logged and swallowed.
func (c *ResponseCache) Set(ctx context.Context, key, value string) {
	if c == nil || value == "" {
		return
	}
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.WithFields(log.Fields{
			"event": "cache_set_failed",
			"error": err.Error(),
		}).Warn("Redis store failed")
	}
}

// Close releases the underlying connection pool.
func (c *ResponseCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
