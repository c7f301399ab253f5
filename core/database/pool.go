package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m3rciful/loginbot/core/logger"
)

// OpenPool connects a pgx pool to databaseURL and pings it.
func OpenPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pool: %w", err)
	}
	logger.Component(logger.CompDB).Info("pgx pool connected",
		slog.String("event", "db.pool"),
		slog.String("host", cfg.ConnConfig.Host),
		slog.String("db", cfg.ConnConfig.Database),
		slog.Int("pool_open", int(cfg.MaxConns)),
		slog.Duration("duration", logger.Took(start)),
	)
	return pool, nil
}
