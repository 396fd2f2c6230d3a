package main

import (
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/taskgate/pkg/config"
	"mercator-hq/taskgate/pkg/status"
	"mercator-hq/taskgate/pkg/status/store"
)

// openStore builds the status store selected by cfg.Store.Backend.
func openStore(cfg *config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return store.NewRedisStore(store.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
			MaxRetries:   cfg.Redis.MaxRetries,
		}), nil
	case config.BackendSQLite:
		return store.NewSQLiteStore(store.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case config.BackendMemory:
		return store.NewMemoryStore(store.MemoryConfig{
			MaxEntries: cfg.Memory.MaxEntries,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

// openRepository opens the configured store and wraps it in a status
// repository. The returned closer releases the store.
func openRepository(cfg *config.Config, logger *slog.Logger) (*status.Repository, io.Closer, error) {
	s, err := openStore(&cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	ttl := status.TTLPolicy{
		Active:   cfg.Status.ActiveTTL,
		Terminal: cfg.Status.TerminalTTL,
	}
	return status.NewRepository(s, cfg.Status.KeyPrefix, ttl, logger), s, nil
}
