package database

import (
	"context"
	"fmt"
	"time"

	"coach_admin_backend/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis connects to REDIS_URL. It returns a nil client when Redis is not
// configured; callers fall back to in-process state.
func NewRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-memory rate limiting")
		return nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr))
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	return client, cleanup, nil
}
