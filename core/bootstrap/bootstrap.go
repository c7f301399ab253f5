package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/loginbot/core/cache"
	coreconfig "github.com/m3rciful/loginbot/core/config"
	coredatabase "github.com/m3rciful/loginbot/core/database"
	"github.com/m3rciful/loginbot/core/logger"
)

// Options control the bootstrap pipeline. Nil funcs select the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// RedisURL is optional; when empty no Redis client is created.
	RedisURL string

	LoggerInit func(coreconfig.LoggingConfig) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	OpenRedis  func(context.Context, string) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases the database and Redis connections.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, connects to the database, applies migrations and
// opens Redis when configured.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res := &Result{DB: db}
	if url := strings.TrimSpace(opts.RedisURL); url != "" {
		open := opts.OpenRedis
		if open == nil {
			open = cache.NewRedisClient
		}
		client, err := open(ctx, url)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}

	logger.Info(ctx, logger.CompApp, "bootstrap.done",
		slog.Bool("redis", res.Redis != nil),
	)
	return res, nil
}
