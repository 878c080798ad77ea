package cacheinfra

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendMemory {
		t.Errorf("expected Backend to be %q, got %q", BackendMemory, cfg.Backend)
	}
	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}
	if cfg.TTL != 24*time.Hour {
		t.Errorf("expected TTL to be 24h, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if !cfg.Breaker.Enabled || cfg.Breaker.MaxFailures != 5 {
		t.Errorf("unexpected breaker defaults: %+v", cfg.Breaker)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	memcached := func(mutate func(*Config)) Config {
		cfg := DefaultConfig()
		cfg.Backend = BackendMemcached
		cfg.Memcached.Servers = []string{"localhost:11211"}
		if mutate != nil {
			mutate(&cfg)
		}
		return cfg
	}
	memory := func(mutate func(*Config)) Config {
		cfg := DefaultConfig()
		mutate(&cfg)
		return cfg
	}

	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "valid memcached", cfg: memcached(nil)},
		{name: "zero capacity", cfg: memory(func(c *Config) { c.Capacity = 0 }), wantField: "Capacity"},
		{name: "zero shards", cfg: memory(func(c *Config) { c.NumShards = 0 }), wantField: "NumShards"},
		{name: "zero ttl", cfg: memory(func(c *Config) { c.TTL = 0 }), wantField: "TTL"},
		{name: "eviction too low", cfg: memory(func(c *Config) { c.EvictionPercentage = 0 }), wantField: "EvictionPercentage"},
		{name: "eviction too high", cfg: memory(func(c *Config) { c.EvictionPercentage = 101 }), wantField: "EvictionPercentage"},
		{name: "unknown backend", cfg: memory(func(c *Config) { c.Backend = "redis" }), wantField: "Backend"},
		{name: "memcached without servers", cfg: memcached(func(c *Config) { c.Memcached.Servers = nil }), wantField: "Memcached.Servers"},
		{name: "memcached ttl too long", cfg: memcached(func(c *Config) { c.TTL = 31 * 24 * time.Hour }), wantField: "TTL"},
		{name: "breaker without threshold", cfg: memcached(func(c *Config) { c.Breaker.MaxFailures = 0 }), wantField: "Breaker.MaxFailures"},
		{name: "breaker disabled ignores threshold", cfg: memcached(func(c *Config) {
			c.Breaker.Enabled = false
			c.Breaker.MaxFailures = 0
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for default config, got %d", got)
	}

	cfg.EvictionInterval = time.Second
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 option with eviction interval, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TTL", Message: "must be greater than 0"}

	if !strings.Contains(err.Error(), "TTL") || !strings.Contains(err.Error(), "must be greater than 0") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}
