package storage

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"ltprelay/internal/application/port"
	"ltprelay/internal/infrastructure/config"
	"ltprelay/internal/infrastructure/storage/composite"
	"ltprelay/internal/infrastructure/storage/postgres"
	"ltprelay/internal/infrastructure/storage/redis"
	"ltprelay/internal/infrastructure/storage/sqlite"
)

// Build assembles the repository from config. Backends are independent;
// any combination may be enabled and writes fan out to all of them.
// Returns nil when no backend is configured (caller falls back to noop).
func Build(cfg *config.Config) (port.Repository, error) {
	var repos []port.Repository

	if path := cfg.Storage.SQLitePath; path != "" {
		r, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("sqlite storage: %w", err)
		}
		repos = append(repos, r)
	}

	if addr := cfg.Storage.RedisAddr; addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr})
		repos = append(repos, redis.New(rdb, cfg.Storage.RedisPrefix, cfg.RedisTTL()))
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		r, err := postgres.New(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres storage: %w", err)
		}
		repos = append(repos, r)
	}

	switch len(repos) {
	case 0:
		return nil, nil
	case 1:
		return repos[0], nil
	default:
		return composite.New(repos...), nil
	}
}
