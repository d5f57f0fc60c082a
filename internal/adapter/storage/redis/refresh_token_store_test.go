package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenStore_Consume_FirstUse(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewRefreshTokenStore(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))

	ok, err := store.Consume(context.Background(), "jti-abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.Exists("refresh:used:jti-abc"))
}

func TestRefreshTokenStore_Consume_Replay(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewRefreshTokenStore(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))
	ctx := context.Background()

	ok, err := store.Consume(ctx, "jti-xyz", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "jti-xyz", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "replayed refresh token should be rejected")
}

func TestRefreshTokenStore_Consume_MarkerExpires(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewRefreshTokenStore(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))
	ctx := context.Background()

	ok, err := store.Consume(ctx, "jti-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = store.Consume(ctx, "jti-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshTokenStore_Consume_NonPositiveTTL(t *testing.T) {
	s := miniredis.RunT(t)
	store := NewRefreshTokenStore(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))

	ok, err := store.Consume(context.Background(), "jti-zero", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, s.TTL("refresh:used:jti-zero"), time.Duration(0))
}
