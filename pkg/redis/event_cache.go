package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const eventCachePrefix = "billing:event:"

// EventCache is a best-effort front for the durable webhook dedupe table.
// It only remembers events after they were fully processed, so a miss is
// always safe: the database claim still decides.
type EventCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewEventCache(client *goredis.Client, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EventCache{client: client, ttl: ttl}
}

// Seen reports whether the event id was already fully processed. Cache
// errors read as "not seen"; the durable path handles the duplicate.
func (c *EventCache) Seen(ctx context.Context, eventID string) bool {
	if c == nil || c.client == nil {
		return false
	}
	n, err := c.client.Exists(ctx, eventCachePrefix+eventID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkSeen remembers a processed event id. Failures are ignored.
func (c *EventCache) MarkSeen(ctx context.Context, eventID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, eventCachePrefix+eventID, 1, c.ttl)
}
