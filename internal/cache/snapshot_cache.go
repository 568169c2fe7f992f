// Package cache implements the cache-aside dedup layer over Redis. It only
// affects ingestion efficiency: every failure path degrades to "fetch
// everything" rather than blocking or failing the run.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type SnapshotCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSnapshotCache(rdb *redis.Client, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, logger: logger}
}

func key(marketplaceID, cardID uint) string {
	return fmt.Sprintf("snapcache:%d:%d", marketplaceID, cardID)
}

// GetRecentlyUpdated returns the subset of cardIDs whose (marketplace, card)
// pair was marked updated within the TTL window. Any backend error degrades
// to the empty set so ingestion falls back to a live fetch.
func (c *SnapshotCache) GetRecentlyUpdated(ctx context.Context, marketplaceID uint, cardIDs []uint) map[uint]struct{} {
	recent := make(map[uint]struct{})
	if len(cardIDs) == 0 {
		return recent
	}

	keys := make([]string, len(cardIDs))
	for i, id := range cardIDs {
		keys[i] = key(marketplaceID, id)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("snapshot cache lookup failed, treating all cards as stale",
			zap.Uint("marketplace_id", marketplaceID), zap.Error(err))
		return recent
	}

	for i, v := range vals {
		if v != nil {
			recent[cardIDs[i]] = struct{}{}
		}
	}
	return recent
}

// MarkUpdated records that the given cards were just refreshed for a
// marketplace. Best-effort: failures are logged and swallowed.
func (c *SnapshotCache) MarkUpdated(ctx context.Context, marketplaceID uint, cardIDs []uint, ttl time.Duration) {
	if len(cardIDs) == 0 {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	pipe := c.rdb.Pipeline()
	for _, id := range cardIDs {
		pipe.Set(ctx, key(marketplaceID, id), now, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("snapshot cache mark failed",
			zap.Uint("marketplace_id", marketplaceID),
			zap.Int("cards", len(cardIDs)),
			zap.Error(err))
	}
}
