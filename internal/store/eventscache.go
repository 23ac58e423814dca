package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"eventgate/internal/model"
)

const eventsCacheKey = "eventgate:events"

// ErrCacheMiss is returned when no cached events list exists at all.
var ErrCacheMiss = errors.New("events cache empty")

// EventsCache holds the public events list with a freshness window. Entries
// are kept past the window so an unreachable upstream can degrade to stale
// data instead of an error; callers decide what staleness is acceptable.
type EventsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventsCache creates a cache with the given freshness window.
func NewEventsCache(client *redis.Client, ttl time.Duration) *EventsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EventsCache{client: client, ttl: ttl}
}

type cacheEntry struct {
	Events   []model.Event `json:"events"`
	CachedAt time.Time     `json:"cachedAt"`
}

// Get returns the cached list and whether it is still within the freshness
// window.
func (c *EventsCache) Get(ctx context.Context) ([]model.Event, bool, error) {
	data, err := c.client.Get(ctx, eventsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, ErrCacheMiss
	}
	if err != nil {
		return nil, false, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, err
	}
	fresh := time.Since(entry.CachedAt) < c.ttl
	return entry.Events, fresh, nil
}

// Set replaces the cached list, stamping it with the current time.
func (c *EventsCache) Set(ctx context.Context, events []model.Event) error {
	entry := cacheEntry{Events: events, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// No redis expiry: stale entries stay usable as a degraded fallback.
	return c.client.Set(ctx, eventsCacheKey, data, 0).Err()
}
