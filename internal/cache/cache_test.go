package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/watch-party/internal/domain"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, "watchparty"), mr
}

func TestRedisCache_Keys(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Equal(t, "watchparty:room:lofi-42", c.RoomKey("lofi-42"))
	assert.Equal(t, "watchparty:user:u1", c.UserKey("u1"))
	assert.Equal(t, "watchparty:lobby:l1", c.LobbyKey("l1"))
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.UserKey("u1")

	var miss domain.Profile
	assert.ErrorIs(t, c.Get(ctx, key, &miss), ErrCacheMiss)

	want := domain.Profile{Username: "calm-otter-0042", DisplayName: "Ada", Avatar: "https://a/1.png"}
	require.NoError(t, c.Set(ctx, key, want, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(key))

	var got domain.Profile
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, key))
	assert.ErrorIs(t, c.Get(ctx, key, &got), ErrCacheMiss)
	require.NoError(t, c.Delete(ctx))
}

func TestRedisCache_Unavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var got domain.Profile
	err := c.Get(context.Background(), c.UserKey("u1"), &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNoopCache(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))

	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
}
