package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/model"
)

func testCache(t *testing.T, ttl time.Duration) *EventsCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEventsCache(client, ttl)
}

func TestEventsCacheMiss(t *testing.T) {
	cache := testCache(t, time.Minute)
	_, _, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestEventsCacheFresh(t *testing.T) {
	cache := testCache(t, time.Minute)
	ctx := context.Background()

	events := []model.Event{{ID: "ev1", Name: "Tech Summit", IsActive: true}}
	require.NoError(t, cache.Set(ctx, events))

	got, fresh, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	require.Len(t, got, 1)
	assert.Equal(t, "ev1", got[0].ID)
}

func TestEventsCacheStaleStillServed(t *testing.T) {
	cache := testCache(t, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []model.Event{{ID: "ev1"}}))
	time.Sleep(25 * time.Millisecond)

	// Past the freshness window the entry survives as a degraded fallback.
	got, fresh, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Len(t, got, 1)
}

func TestEventsCacheOverwrite(t *testing.T) {
	cache := testCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []model.Event{{ID: "ev1"}}))
	require.NoError(t, cache.Set(ctx, []model.Event{{ID: "ev2"}, {ID: "ev3"}}))

	got, fresh, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, got, 2)
}
