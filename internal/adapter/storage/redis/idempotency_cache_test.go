package redis

import (
	"context"
	"testing"
	"time"

	"marketplace-backend/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "purchase:7:order-001"
	value := []byte(`{"id":42,"total_price":"30.00"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, s.Exists("replay:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "purchase:7:order-002", []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "purchase:7:order-002")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	cache := NewIdempotencyCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	_, err = cache.Reserve(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	assert.Error(t, cache.Release(context.Background(), "k"))
	assert.Error(t, cache.Set(context.Background(), "k", []byte("v"), time.Minute))
}

func TestIdempotencyCache_ReserveOnce(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "purchase:7:1:3:order-003"
	ok, err := cache.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail while the first is held")

	_, err = cache.Get(ctx, key)
	assert.ErrorIs(t, err, ports.ErrReplayPending)

	s.FastForward(2 * time.Minute)
	ok, err = cache.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an abandoned claim expires")
}

func TestIdempotencyCache_SetReplacesClaim(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "purchase:7:1:3:order-004"
	_, err := cache.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, key, []byte(`{"id":1}`), time.Hour))

	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(result))

	ok, err := cache.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyCache_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	t.Run("drops a pending claim", func(t *testing.T) {
		key := "purchase:7:1:3:order-005"
		_, err := cache.Reserve(ctx, key, time.Minute)
		require.NoError(t, err)

		require.NoError(t, cache.Release(ctx, key))
		assert.False(t, s.Exists("replay:"+key))

		ok, err := cache.Reserve(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("keeps a stored response", func(t *testing.T) {
		key := "purchase:7:1:3:order-006"
		require.NoError(t, cache.Set(ctx, key, []byte(`{"id":2}`), time.Hour))

		require.NoError(t, cache.Release(ctx, key))

		result, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2}`, string(result))
	})
}
