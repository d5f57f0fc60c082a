package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RefreshTokenStore implements ports.RefreshTokenStore using Redis SET NX.
// A refresh token id can be consumed once; the marker lives as long as the token would.
type RefreshTokenStore struct {
	client *goredis.Client
	prefix string
}

// NewRefreshTokenStore creates a new Redis-backed refresh token store.
func NewRefreshTokenStore(client *goredis.Client) *RefreshTokenStore {
	return &RefreshTokenStore{
		client: client,
		prefix: "refresh:used:",
	}
}

// Consume atomically marks tokenID as used.
// Returns true on first use, false if the token was already consumed.
func (s *RefreshTokenStore) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	result, err := s.client.SetArgs(ctx, s.prefix+tokenID, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis refresh token consume: %w", err)
	}
	return result == "OK", nil
}
