package cacheinfra

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for a miss and by Delete when the key is absent.
var ErrNotFound = errors.New("cache: key not found")

// KeyValueStore is the byte-level contract every backend implements.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// New builds the configured backend, wrapped in a circuit breaker when enabled.
func New(cfg Config, logger *zap.Logger) (KeyValueStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store KeyValueStore
		err   error
	)
	switch cfg.Backend {
	case BackendMemcached:
		store, err = NewMemcachedStore(cfg)
	default:
		store, err = NewSturdycStore(cfg)
	}
	if err != nil {
		return nil, err
	}

	// The in-process cache cannot fail in a way a breaker would help with.
	if cfg.Breaker.Enabled && cfg.Backend == BackendMemcached {
		store = NewBreakerStore(store, cfg.Breaker, logger.Named("cache.breaker"))
	}
	return store, nil
}
