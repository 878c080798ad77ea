package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Supported cache backends.
const (
	BackendMemory    = "memory"
	BackendMemcached = "memcached"
)

// memcachedMaxRelativeTTL is the largest expiration memcached treats as relative.
// Larger values are interpreted as unix timestamps by the server.
const memcachedMaxRelativeTTL = 30 * 24 * time.Hour

// Config holds the configuration for every cache backend.
type Config struct {
	// Backend selects the store implementation: "memory" or "memcached".
	Backend string

	// Capacity defines the maximum number of entries the in-process cache stores.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of in-process cache shards.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the time-to-live for cached entries.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the in-process cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	Memcached MemcachedConfig
	Breaker   BreakerConfig
}

// MemcachedConfig configures the memcached backend.
type MemcachedConfig struct {
	// Servers lists host:port pairs. An ElastiCache configuration endpoint works as a single entry.
	Servers      []string
	Timeout      time.Duration
	MaxIdleConns int
}

// BreakerConfig configures the circuit breaker placed in front of a remote cache.
type BreakerConfig struct {
	Enabled bool
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
		Memcached: MemcachedConfig{
			Timeout:      500 * time.Millisecond,
			MaxIdleConns: 64,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 10 * time.Second,
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	switch c.Backend {
	case BackendMemory:
		if c.Capacity <= 0 {
			return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
		}
		if c.NumShards <= 0 {
			return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
		}
		if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
			return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
		}
	case BackendMemcached:
		if len(c.Memcached.Servers) == 0 {
			return &ConfigError{Field: "Memcached.Servers", Message: "at least one server is required"}
		}
		if c.TTL > memcachedMaxRelativeTTL {
			return &ConfigError{Field: "TTL", Message: "must not exceed 30 days for memcached"}
		}
		if c.Memcached.Timeout < 0 {
			return &ConfigError{Field: "Memcached.Timeout", Message: "must be non-negative"}
		}
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of memory, memcached"}
	}

	if c.Breaker.Enabled {
		if c.Breaker.MaxFailures == 0 {
			return &ConfigError{Field: "Breaker.MaxFailures", Message: "must be greater than 0"}
		}
		if c.Breaker.OpenTimeout <= 0 {
			return &ConfigError{Field: "Breaker.OpenTimeout", Message: "must be greater than 0"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
