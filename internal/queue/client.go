package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/amanihub/amani/internal/config"
	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client for the broker and verifies the connection.
// The client is an explicit dependency owned by the host process: connect at
// startup, pass it into the producer, Close on shutdown. No package-level
// singleton exists.
// Parameters:
//   - ctx: context bounding the connection check.
//   - cfg: Redis connection configuration.
// Returns:
//   - *redis.Client: connected client.
//   - error: non-nil if the broker is unreachable.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
