package redis

import (
	"context"
	"fmt"
	"time"

	"salvage-auction-engine/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Connection behavior. Redis backs OTP codes, presence, rate limits, and the
// broadcast bridge; a slow instance should fail fast rather than stall the
// bid path.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 500 * time.Millisecond
	minIdleConns = 2
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		MinIdleConns: minIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}
