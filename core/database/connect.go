package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/loginbot/core/logger"
)

const connectTimeout = 5 * time.Second

// Connect opens the sqlx pool, applies pool limits and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	log := logger.Component(logger.CompDB)
	base := []any{
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		log.Error("db connect failed", append(base,
			slog.String("event", "db.connect"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}

	log.Info("db connected", append(base,
		slog.String("event", "db.connect"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn every interval until it answers, ctx ends or timeout elapses.
func WaitForPostgres(ctx context.Context, dsn string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err == nil {
			_ = db.Close()
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		case <-time.After(interval):
		}
	}
}
