// Package cache builds the Redis client used by the conversation store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/loginbot/core/logger"
)

// Config holds Redis connection settings.
type Config struct {
	URL string `yaml:"url" envconfig:"REDIS_URL"`
}

// NewRedisClient parses url, connects and verifies the server answers PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info(ctx, logger.CompSession, "redis.connect",
		slog.String("host", opt.Addr),
		slog.Int("db", opt.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}
