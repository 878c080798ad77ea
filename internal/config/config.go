// Package config loads the directory service configuration from an optional YAML
// file and the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Cache backends.
const (
	CacheMemory    = "memory"
	CacheMemcached = "memcached"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Directory DirectoryConfig `yaml:"directory"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver"`
	TableName string `yaml:"table_name"`
	AWSRegion string `yaml:"aws_region"`
	// Endpoint overrides the DynamoDB endpoint, for DynamoDB Local.
	Endpoint string `yaml:"endpoint"`
	DSN      string `yaml:"dsn"`
}

type CacheConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Backend            string        `yaml:"backend"`
	MemcachedEndpoint  string        `yaml:"memcached_endpoint"`
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	Breaker            bool          `yaml:"breaker"`
	BreakerFailures    uint32        `yaml:"breaker_failures"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

type DirectoryConfig struct {
	CompareAndSwap          bool          `yaml:"compare_and_swap"`
	RatingAttempts          uint          `yaml:"rating_attempts"`
	RatingRetryDelay        time.Duration `yaml:"rating_retry_delay"`
	InvalidationConcurrency int           `yaml:"invalidation_concurrency"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when neither a file nor the environment
// sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver:    DriverDynamoDB,
			TableName: "Restaurants",
			AWSRegion: "us-east-1",
		},
		Cache: CacheConfig{
			Enabled:            true,
			Backend:            CacheMemory,
			Capacity:           10000,
			NumShards:          256,
			TTL:                24 * time.Hour,
			EvictionPercentage: 10,
			Timeout:            500 * time.Millisecond,
			MaxIdleConns:       64,
			Breaker:            true,
			BreakerFailures:    5,
			BreakerOpenTimeout: 10 * time.Second,
		},
		Directory: DirectoryConfig{
			CompareAndSwap:          true,
			RatingAttempts:          10,
			RatingRetryDelay:        5 * time.Millisecond,
			InvalidationConcurrency: 32,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.TableName = getEnv("TABLE_NAME", c.Store.TableName)
	c.Store.AWSRegion = getEnv("AWS_REGION", c.Store.AWSRegion)
	c.Store.Endpoint = getEnv("DYNAMODB_ENDPOINT", c.Store.Endpoint)
	c.Store.DSN = getEnv("DATABASE_DSN", c.Store.DSN)

	c.Cache.Enabled = getEnvBool("USE_CACHE", c.Cache.Enabled)
	c.Cache.MemcachedEndpoint = getEnv("MEMCACHED_CONFIGURATION_ENDPOINT", c.Cache.MemcachedEndpoint)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	if os.Getenv("CACHE_BACKEND") == "" && c.Cache.MemcachedEndpoint != "" {
		c.Cache.Backend = CacheMemcached
	}
	c.Cache.TTL = getEnvDuration("CACHE_TTL", c.Cache.TTL)

	c.Directory.CompareAndSwap = getEnvBool("RATING_COMPARE_AND_SWAP", c.Directory.CompareAndSwap)
	c.Directory.InvalidationConcurrency = getEnvInt("INVALIDATION_CONCURRENCY", c.Directory.InvalidationConcurrency)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Development = getEnvBool("LOG_DEVELOPMENT", c.Log.Development)
}

// MemcachedServers splits the configured endpoint list.
func (c CacheConfig) MemcachedServers() []string {
	var servers []string
	for _, s := range strings.Split(c.MemcachedEndpoint, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return &ConfigError{Field: "server.address", Message: "is required"}
	}

	switch c.Store.Driver {
	case DriverDynamoDB:
		if c.Store.TableName == "" {
			return &ConfigError{Field: "store.table_name", Message: "is required for the dynamodb driver"}
		}
		if c.Store.AWSRegion == "" {
			return &ConfigError{Field: "store.aws_region", Message: "is required for the dynamodb driver"}
		}
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return &ConfigError{Field: "store.dsn", Message: "is required for sql drivers"}
		}
	case DriverMemory:
	default:
		return &ConfigError{Field: "store.driver", Message: fmt.Sprintf("unknown driver %q", c.Store.Driver)}
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheMemory:
		case CacheMemcached:
			if len(c.Cache.MemcachedServers()) == 0 {
				return &ConfigError{Field: "cache.memcached_endpoint", Message: "is required for the memcached backend"}
			}
		default:
			return &ConfigError{Field: "cache.backend", Message: fmt.Sprintf("unknown backend %q", c.Cache.Backend)}
		}
	}

	if c.Directory.InvalidationConcurrency <= 0 {
		return &ConfigError{Field: "directory.invalidation_concurrency", Message: "must be greater than 0"}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
