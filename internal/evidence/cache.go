// internal/evidence/cache.go
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"

	"github.com/redis/go-redis/v9"
)

// Cache memoises adapter responses in Redis so a refined query repeated
// across iterations does not hit the external source twice. A cache failure
// is never an error for the caller, it just means a live call.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

// NewCache creates a cache with the given TTL for stored entries.
func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{redis: client, ttl: ttl, log: log}
}

// Key derives the cache key for one source and query.
func Key(source models.SourceKind, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("evidence:%s:%s", source, hex.EncodeToString(sum[:]))
}

// Get returns the cached evidence for (source, query), or nil and false on a
// miss or any cache failure.
func (c *Cache) Get(ctx context.Context, source models.SourceKind, query string) ([]models.Evidence, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, Key(source, query)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("evidence cache read failed", map[string]interface{}{
				"source": string(source),
				"error":  err.Error(),
			})
		}
		return nil, false
	}

	var items []models.Evidence
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		c.log.Warn("evidence cache entry corrupt, ignoring", map[string]interface{}{
			"source": string(source),
			"error":  err.Error(),
		})
		return nil, false
	}
	return items, true
}

// Put stores the evidence for (source, query). Failures are logged and
// swallowed.
func (c *Cache) Put(ctx context.Context, source models.SourceKind, query string, items []models.Evidence) {
	if c == nil || c.redis == nil || len(items) == 0 {
		return
	}

	data, err := json.Marshal(items)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, Key(source, query), data, c.ttl).Err(); err != nil {
		c.log.Warn("evidence cache write failed", map[string]interface{}{
			"source": string(source),
			"error":  err.Error(),
		})
	}
}
