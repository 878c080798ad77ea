package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/YoadTamar/aws-hw2/internal/cacheinfra"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory    = cacheinfra.BackendMemory
	BackendMemcached = cacheinfra.BackendMemcached
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	Memcached          MemcachedConfig
	Breaker            BreakerConfig
}

// MemcachedConfig mirrors the memcached backend options.
type MemcachedConfig struct {
	Servers      []string
	Timeout      time.Duration
	MaxIdleConns int
}

// BreakerConfig mirrors the circuit breaker options used for remote backends.
type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32
	OpenTimeout time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the configured cache backend.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	return cacheinfra.New(cfg.toInternal(), logger)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Memcached: cacheinfra.MemcachedConfig{
			Servers:      c.Memcached.Servers,
			Timeout:      c.Memcached.Timeout,
			MaxIdleConns: c.Memcached.MaxIdleConns,
		},
		Breaker: cacheinfra.BreakerConfig{
			Enabled:     c.Breaker.Enabled,
			MaxFailures: c.Breaker.MaxFailures,
			OpenTimeout: c.Breaker.OpenTimeout,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Memcached: MemcachedConfig{
			Servers:      cfg.Memcached.Servers,
			Timeout:      cfg.Memcached.Timeout,
			MaxIdleConns: cfg.Memcached.MaxIdleConns,
		},
		Breaker: BreakerConfig{
			Enabled:     cfg.Breaker.Enabled,
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		},
	}
}
