// Package platform opens the configured store backend and its connections.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/logger"
	"github.com/segyhp/loan-ledger/internal/repository"
	"github.com/segyhp/loan-ledger/internal/repository/memory"
	"github.com/segyhp/loan-ledger/internal/repository/postgres"
	redisstore "github.com/segyhp/loan-ledger/internal/repository/redis"
	"github.com/segyhp/loan-ledger/internal/repository/sqlite"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Backend is an opened store plus what the process needs to check and close it.
type Backend struct {
	Name   string
	Stores repository.Stores
	// Checks is keyed by dependency name, e.g. "database" or "redis".
	Checks  map[string]Pinger
	closers []func() error
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStores builds the backend named by cfg.Store.Backend.
func OpenStores(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return &Backend{
			Name:   config.StoreMemory,
			Stores: memory.NewStores(),
			Checks: map[string]Pinger{},
		}, nil
	case config.StorePostgres:
		return openPostgres(ctx, cfg)
	case config.StoreRedis:
		return openRedis(ctx, cfg)
	case config.StoreSQLite:
		return openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Backend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info().Int("max_open_conns", cfg.Database.MaxOpenConns).Msg("postgres store ready")

	return &Backend{
		Name:    config.StorePostgres,
		Stores:  postgres.NewStores(db),
		Checks:  map[string]Pinger{"database": PingFunc(db.PingContext)},
		closers: []func() error{db.Close},
	}, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info().Str("addr", cfg.RedisAddr()).Str("prefix", cfg.Redis.KeyPrefix).Msg("redis store ready")

	return &Backend{
		Name:   config.StoreRedis,
		Stores: redisstore.NewStores(client, cfg.Redis.KeyPrefix),
		Checks: map[string]Pinger{
			"redis": PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }),
		},
		closers: []func() error{client.Close},
	}, nil
}

func openSQLite(cfg *config.Config) (*Backend, error) {
	db, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", cfg.SQLite.Path).Msg("sqlite store ready")

	return &Backend{
		Name:    config.StoreSQLite,
		Stores:  sqlite.NewStores(db),
		Checks:  map[string]Pinger{"database": PingFunc(sqlDB.PingContext)},
		closers: []func() error{sqlDB.Close},
	}, nil
}
