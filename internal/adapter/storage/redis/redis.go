package redis

import (
	"context"
	"fmt"
	"time"

	"marketplace-backend/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	clientName  = "marketplace-backend"
	dialTimeout = 5 * time.Second
)

// NewClient connects to Redis and fails fast when the server does not answer.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  clientName,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connected")

	return client, nil
}
