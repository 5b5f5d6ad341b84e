package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"yatube/internal/observability"
)

const GlobalFeedKeyPrefix = "feed:global:page:%d"

// GlobalFeedTTL is how long a rendered page of the global feed may be served stale.
const GlobalFeedTTL = 20 * time.Second

func GlobalFeedKey(page int) string {
	return fmt.Sprintf(GlobalFeedKeyPrefix, page)
}

// Cache is a JSON read-through cache over a Store.
type Cache struct {
	store Store
	name  string
}

// New wraps store; name labels the hit/miss metrics.
func New(name string, store Store) *Cache {
	return &Cache{store: store, name: name}
}

// NewDefault picks Redis when a client is connected, the process-local store otherwise.
func NewDefault(name string) *Cache {
	if c := GetClient(); c != nil {
		return New(name, NewRedisStore(c))
	}
	return New(name, NewMemoryStore(nil))
}

// Aside tries the store first; on a miss it calls fetch, which must populate
// dest, then stores dest with ttl. Store failures degrade to a direct fetch.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		if err := json.Unmarshal(raw, dest); err == nil {
			observability.CacheHits.WithLabelValues(c.name).Inc()
			return nil
		}
		_ = c.store.Delete(ctx, key)
	}
	observability.CacheMisses.WithLabelValues(c.name).Inc()

	if err := fetch(); err != nil {
		return err
	}

	b, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := c.store.Set(ctx, key, b, ttl); err != nil {
		slog.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate drops key.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	_ = c.store.Delete(ctx, key)
}
