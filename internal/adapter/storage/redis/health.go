package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	healthKey    = "health:probe"
	healthKeyTTL = 30 * time.Second
)

// HealthCheck probes Redis with a short-lived write. Rate limiting, refresh
// token rotation and purchase replay all write, so a read-only replica is
// reported unhealthy.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Set(ctx, healthKey, time.Now().Unix(), healthKeyTTL).Err(); err != nil {
		return fmt.Errorf("redis write probe: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "redis"
}
