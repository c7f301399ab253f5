package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/loginbot/core/logger"
)

// DefaultMigrationsDir is used when Config.MigrationsDir is empty.
const DefaultMigrationsDir = "migrations"

// RunMigrations waits for Postgres and applies every pending up migration.
func RunMigrations(ctx context.Context, cfg Config) error {
	log := logger.Component(logger.CompMigrate)

	if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second, 2*time.Second); err != nil {
		log.Error("db not ready", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := migrationsDir(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	files := listUpFiles(dir)
	log.Debug("migrations resolved",
		slog.String("event", "db.migrate.resolve"),
		slog.String("path", dir),
		slog.Int("count", len(files)),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.URL())
	if err != nil {
		log.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	switch {
	case upErr == nil, errors.Is(upErr, migrate.ErrNoChange):
	default:
		log.Error("migration failed",
			slog.String("event", "db.migrate.apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		log.Debug("applied files",
			slog.String("event", "db.migrate.apply"),
			slog.String("files", strings.Join(applied, ", ")),
		)
	}
	log.Info("migrations summary",
		slog.String("event", "db.migrate.summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func migrationsDir(configured string) (string, error) {
	dir := strings.TrimSpace(configured)
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, dir), nil
}

func listUpFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween lists files with a version in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
