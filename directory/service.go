package directory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/YoadTamar/aws-hw2/cache"
	"github.com/YoadTamar/aws-hw2/internal/metrics"
	"github.com/YoadTamar/aws-hw2/invalidation"
	"github.com/YoadTamar/aws-hw2/keyspace"
)

// Options configures a Service. The cache flag is fixed for the lifetime of the Service.
type Options struct {
	CacheEnabled bool

	// CompareAndSwap makes rating updates conditional on the rating count that was read,
	// retrying on conflict. Without it concurrent ratings of one record can be lost.
	CompareAndSwap   bool
	RatingAttempts   uint
	RatingRetryDelay time.Duration

	// Invalidator defaults to an invalidation.Engine over the cache store.
	Invalidator Invalidator
	Logger      *zap.Logger
	Metrics     *metrics.Recorder
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CacheEnabled:     true,
		CompareAndSwap:   true,
		RatingAttempts:   10,
		RatingRetryDelay: 5 * time.Millisecond,
	}
}

// Service keeps a look-aside cache coherent with a RecordStore.
//
// Once a store mutation has committed, the cache work that follows runs on a context
// detached from the caller's cancellation, so a dropped request cannot leave list
// entries behind.
type Service struct {
	store       RecordStore
	cache       cache.Store
	invalidator Invalidator
	opts        Options
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

// NewService wires a Service. A nil cacheStore disables the cache path.
func NewService(store RecordStore, cacheStore cache.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RatingAttempts == 0 {
		opts.RatingAttempts = DefaultOptions().RatingAttempts
	}
	if opts.RatingRetryDelay <= 0 {
		opts.RatingRetryDelay = DefaultOptions().RatingRetryDelay
	}
	if cacheStore == nil && opts.CacheEnabled {
		logger.Warn("cache enabled without a cache store, disabling cache path")
		opts.CacheEnabled = false
	}

	invalidator := opts.Invalidator
	if invalidator == nil && cacheStore != nil {
		invalidator = invalidation.New(cacheStore,
			invalidation.WithLogger(logger.Named("invalidation")),
			invalidation.WithMetrics(opts.Metrics),
		)
	}

	return &Service{
		store:       store,
		cache:       cacheStore,
		invalidator: invalidator,
		opts:        opts,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// CacheEnabled reports whether the cache path is active.
func (s *Service) CacheEnabled() bool {
	return s.opts.CacheEnabled
}

// CreateRecord stores a new record. The initial rating, if any, is kept with a count of zero.
func (s *Service) CreateRecord(ctx context.Context, record Record) error {
	record.RatingCount = 0
	if err := record.Validate(); err != nil {
		return invalid(err, "invalid record")
	}

	if s.opts.CacheEnabled {
		key := keyspace.Point(record.Name)
		_, err := cache.Load[Record](ctx, s.cache, recordCodec{}, key)
		switch {
		case err == nil:
			return conflict(ErrRecordExists, "record "+record.Name+" already exists")
		case !errors.Is(err, cache.ErrNotFound):
			s.cacheFailure("get", key, err)
		}
	} else {
		_, err := s.store.Get(ctx, record.Name)
		switch {
		case err == nil:
			return conflict(ErrRecordExists, "record "+record.Name+" already exists")
		case !errors.Is(err, ErrRecordNotFound):
			s.metrics.StoreError("get")
			return internal(err, "failed to check record existence")
		}
	}

	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrRecordExists) {
			return conflict(err, "record "+record.Name+" already exists")
		}
		s.metrics.StoreError("insert")
		return internal(err, "failed to store record")
	}

	if s.opts.CacheEnabled {
		committed := context.WithoutCancel(ctx)
		s.invalidate(committed, record.Region, record.Category)
		s.prime(committed, record)
	}
	return nil
}

// GetRecord returns the record called name.
func (s *Service) GetRecord(ctx context.Context, name string) (Record, error) {
	if name == "" {
		return Record{}, badRequest("name is required")
	}

	fetch := func(ctx context.Context) (Record, error) {
		record, err := s.store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return Record{}, notFound(name)
			}
			s.metrics.StoreError("get")
			return Record{}, internal(err, "failed to read record")
		}
		return record, nil
	}

	if !s.opts.CacheEnabled {
		return fetch(ctx)
	}

	record, hit, err := cache.GetOrFetch[Record](ctx, s.cache, recordCodec{}, keyspace.Point(name), fetch, s.cacheFailure)
	if err != nil {
		return Record{}, err
	}
	s.metrics.CacheLookup("point", hit)
	return record, nil
}

// DeleteRecord removes the record called name and every cache entry that may list it.
func (s *Service) DeleteRecord(ctx context.Context, name string) error {
	if name == "" {
		return badRequest("name is required")
	}

	record, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notFound(name)
		}
		s.metrics.StoreError("get")
		return internal(err, "failed to read record")
	}

	if s.opts.CacheEnabled {
		s.evict(ctx, name)
	}

	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return notFound(name)
		}
		s.metrics.StoreError("delete")
		return internal(err, "failed to delete record")
	}

	// A read between the first eviction and the store delete may have cached the record again.
	if s.opts.CacheEnabled {
		committed := context.WithoutCancel(ctx)
		s.evict(committed, name)
		s.invalidate(committed, record.Region, record.Category)
	}
	return nil
}

// ListByCategory returns up to limit records in category rated at least minRating,
// highest rated first. minRating is rounded to the nearest tenth before filtering, so
// 2.95 filters at 3.0 and 2.94 at 2.9.
func (s *Service) ListByCategory(ctx context.Context, category string, limit int, minRating float64) ([]Record, error) {
	if category == "" {
		return nil, badRequest("category is required")
	}
	floor, err := keyspace.ParseDecirating(minRating)
	if err != nil {
		return nil, badRequest("minRating must be between 0 and 5")
	}
	limit = keyspace.ClampLimit(limit)

	return s.list(ctx, "category", keyspace.Category(category, floor, limit), func(ctx context.Context) ([]Record, error) {
		records, err := s.store.QueryByCategory(ctx, category, limit)
		if err != nil {
			return nil, err
		}
		threshold := floor.Float64()
		filtered := make([]Record, 0, len(records))
		for _, r := range records {
			if r.Rating >= threshold {
				filtered = append(filtered, r)
			}
		}
		return filtered, nil
	})
}

// ListByRegion returns up to limit records in region, highest rated first.
func (s *Service) ListByRegion(ctx context.Context, region string, limit int) ([]Record, error) {
	if region == "" {
		return nil, badRequest("region is required")
	}
	limit = keyspace.ClampLimit(limit)

	return s.list(ctx, "region", keyspace.Region(region, limit), func(ctx context.Context) ([]Record, error) {
		return s.store.QueryByRegion(ctx, region, limit)
	})
}

// ListByRegionAndCategory returns up to limit records matching both region and category.
func (s *Service) ListByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]Record, error) {
	if region == "" || category == "" {
		return nil, badRequest("region and category are required")
	}
	limit = keyspace.ClampLimit(limit)

	return s.list(ctx, "region_category", keyspace.RegionCategory(region, category, limit), func(ctx context.Context) ([]Record, error) {
		return s.store.QueryByRegionAndCategory(ctx, region, category, limit)
	})
}

func (s *Service) list(ctx context.Context, kind, key string, query cache.FetchFn[[]Record]) ([]Record, error) {
	fetch := func(ctx context.Context) ([]Record, error) {
		records, err := query(ctx)
		if err != nil {
			s.metrics.StoreError("query_" + kind)
			return nil, internal(err, "failed to query records")
		}
		if records == nil {
			records = []Record{}
		}
		return records, nil
	}

	if !s.opts.CacheEnabled {
		return fetch(ctx)
	}

	records, hit, err := cache.GetOrFetch[[]Record](ctx, s.cache, listCodec{}, key, fetch, s.cacheFailure)
	if err != nil {
		return nil, err
	}
	s.metrics.CacheLookup(kind, hit)
	return records, nil
}

func (s *Service) invalidate(ctx context.Context, region, category string) {
	if s.invalidator == nil {
		return
	}
	report, err := s.invalidator.Invalidate(ctx, region, category)
	if err != nil {
		s.metrics.CacheError("invalidate")
		s.logger.Warn("cache invalidation failed",
			zap.String("region", region),
			zap.String("category", category),
			zap.Int("failed", report.Failed),
			zap.Error(err),
		)
	}
}

func (s *Service) prime(ctx context.Context, record Record) {
	key := keyspace.Point(record.Name)
	if err := cache.Save[Record](ctx, s.cache, recordCodec{}, key, record); err != nil {
		s.cacheFailure("set", key, err)
	}
}

func (s *Service) evict(ctx context.Context, name string) {
	key := keyspace.Point(name)
	if err := s.cache.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrNotFound) {
		s.cacheFailure("delete", key, err)
	}
}

func (s *Service) cacheFailure(op, key string, err error) {
	s.metrics.CacheError(op)
	s.logger.Warn("cache operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
