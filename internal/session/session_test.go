package session

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

func testRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := testRedisStore(t)
	ctx := context.Background()

	s := &Session{
		ID:        "sess1",
		Token:     "upstream-token",
		User:      model.User{ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "sess1")
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)
	assert.Equal(t, s.User.Email, got.User.Email)

	require.NoError(t, store.Delete(ctx, "sess1"))
	_, err = store.Get(ctx, "sess1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsExpired(t *testing.T) {
	store := testRedisStore(t)
	s := &Session{ID: "sess1", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.Error(t, store.Save(context.Background(), s))
}

func TestRedisStoreDeleteAbsent(t *testing.T) {
	store := testRedisStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := &Session{ID: "sess1", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, store.Save(ctx, s))
	_, err := store.Get(ctx, "sess1")
	assert.ErrorIs(t, err, ErrNotFound)
}
