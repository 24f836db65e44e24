package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/loqalabs/loqa-coach/internal/config"
)

var (
	ErrInvalidConfig = errors.New("kvstore: invalid configuration")
	ErrUnknownDriver = errors.New("kvstore: unknown driver")
)

// Store is a flat key-value store holding opaque byte values.
type Store interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path)
	case "sqlite":
		return OpenSQLite(ctx, cfg, log)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, ErrInvalidConfig
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable at startup", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		}
		return NewRedis(client, ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
