package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-backend/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const (
	replayPrefix  = "replay:"
	pendingMarker = "pending"
)

// releaseScript deletes a key only while it still holds the pending marker,
// so a stored response is never dropped.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyCache keeps the response of a committed purchase under the
// caller's Idempotency-Key so a retried request replays it instead of
// charging the wallet twice. A key is claimed with a pending marker before
// the purchase runs; the committed response later replaces the marker.
type IdempotencyCache struct {
	client *goredis.Client
}

func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Reserve claims key with SETNX. The claim expires after ttl if its holder dies.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, replayPrefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis replay reserve: %w", err)
	}
	return ok, nil
}

// Get returns nil, nil when nothing is recorded for key and
// ports.ErrReplayPending while the key is only claimed.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, replayPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis replay get: %w", err)
	}
	if string(val) == pendingMarker {
		return nil, ports.ErrReplayPending
	}
	return val, nil
}

// Set replaces the claim on key with the committed response.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, replayPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis replay set: %w", err)
	}
	return nil
}

// Release drops an unfinished claim. A stored response is left in place.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{replayPrefix + key}, pendingMarker).Err(); err != nil {
		return fmt.Errorf("redis replay release: %w", err)
	}
	return nil
}
