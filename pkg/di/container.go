package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/YoadTamar/aws-hw2/cache"
	"github.com/YoadTamar/aws-hw2/directory"
	"github.com/YoadTamar/aws-hw2/internal/config"
	"github.com/YoadTamar/aws-hw2/internal/httpapi"
	"github.com/YoadTamar/aws-hw2/internal/metrics"
	"github.com/YoadTamar/aws-hw2/internal/storeinfra"
	"github.com/YoadTamar/aws-hw2/invalidation"
)

// Container wires the directory service from configuration.
// It owns singleton instances of the record store, cache store, metrics recorder
// and service, and releases them on Close.
type Container struct {
	config  config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder
	store   directory.RecordStore
	cache   cache.Store
	service *directory.Service

	migrate func(context.Context) error
	closers []func() error
}

// NewContainer validates cfg and builds every component it describes.
// A nil logger disables logging.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		config:  *cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	if err := c.initStore(ctx); err != nil {
		return nil, err
	}
	if err := c.initCache(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initService()

	return c, nil
}

// NewContainerWithDefaults builds a container over the in-memory store and cache.
func NewContainerWithDefaults() (*Container, error) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	return NewContainer(context.Background(), cfg, nil)
}

func (c *Container) initStore(ctx context.Context) error {
	sc := c.config.Store
	logger := c.logger.Named("store")

	switch sc.Driver {
	case config.DriverMemory:
		c.store = storeinfra.NewMemoryStore()
		c.migrate = func(context.Context) error { return nil }

	case config.DriverSQLite, config.DriverPostgres:
		store, err := storeinfra.OpenSQL(sc.Driver, sc.DSN)
		if err != nil {
			return err
		}
		c.store = store
		c.migrate = store.CreateSchema
		c.closers = append(c.closers, store.Close)

	case config.DriverDynamoDB:
		client, err := storeinfra.NewDynamoClient(ctx, sc.AWSRegion, sc.Endpoint)
		if err != nil {
			return err
		}
		store := storeinfra.NewDynamoStore(client, sc.TableName, logger)
		c.store = store
		c.migrate = store.CreateTable

	default:
		return fmt.Errorf("unsupported store driver %q", sc.Driver)
	}

	logger.Info("record store ready", zap.String("driver", sc.Driver))
	return nil
}

func (c *Container) initCache() error {
	cc := c.config.Cache
	if !cc.Enabled {
		c.logger.Info("cache disabled")
		return nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Backend = cc.Backend
	cacheCfg.Capacity = cc.Capacity
	cacheCfg.NumShards = cc.NumShards
	cacheCfg.TTL = cc.TTL
	cacheCfg.EvictionPercentage = cc.EvictionPercentage
	cacheCfg.EvictionInterval = cc.EvictionInterval
	cacheCfg.Memcached = cache.MemcachedConfig{
		Servers:      cc.MemcachedServers(),
		Timeout:      cc.Timeout,
		MaxIdleConns: cc.MaxIdleConns,
	}
	cacheCfg.Breaker = cache.BreakerConfig{
		Enabled:     cc.Breaker,
		MaxFailures: cc.BreakerFailures,
		OpenTimeout: cc.BreakerOpenTimeout,
	}

	store, err := cache.NewStore(cacheCfg, c.logger.Named("cache"))
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}
	c.cache = store
	c.logger.Info("cache ready", zap.String("backend", cc.Backend))
	return nil
}

func (c *Container) initService() {
	dc := c.config.Directory
	opts := directory.Options{
		CacheEnabled:     c.cache != nil,
		CompareAndSwap:   dc.CompareAndSwap,
		RatingAttempts:   dc.RatingAttempts,
		RatingRetryDelay: dc.RatingRetryDelay,
		Logger:           c.logger.Named("directory"),
		Metrics:          c.metrics,
	}
	if c.cache != nil {
		opts.Invalidator = invalidation.New(c.cache,
			invalidation.WithConcurrency(dc.InvalidationConcurrency),
			invalidation.WithLogger(c.logger.Named("invalidation")),
			invalidation.WithMetrics(c.metrics),
		)
	}
	c.service = directory.NewService(c.store, c.cache, opts)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

func (c *Container) Store() directory.RecordStore {
	return c.store
}

// Cache returns the cache store, or nil when caching is disabled.
func (c *Container) Cache() cache.Store {
	return c.cache
}

func (c *Container) Service() *directory.Service {
	return c.service
}

// Handler returns the HTTP routes for the service.
func (c *Container) Handler() http.Handler {
	info := httpapi.Info{
		CacheEnabled: c.service.CacheEnabled(),
		StoreDriver:  c.config.Store.Driver,
		TableName:    c.config.Store.TableName,
		AWSRegion:    c.config.Store.AWSRegion,
	}
	if info.CacheEnabled {
		info.CacheBackend = c.config.Cache.Backend
	}
	return httpapi.NewHandler(c.service, info, c.logger.Named("http"), c.metrics).Routes()
}

// Migrate creates the durable schema of the configured store if it does not exist.
func (c *Container) Migrate(ctx context.Context) error {
	return c.migrate(ctx)
}

// Close releases store connections.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
