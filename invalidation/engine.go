// Package invalidation deletes every list-query cache entry a record mutation could affect.
package invalidation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YoadTamar/aws-hw2/cache"
	"github.com/YoadTamar/aws-hw2/internal/metrics"
	"github.com/YoadTamar/aws-hw2/keyspace"
)

// DefaultConcurrency bounds the number of in-flight cache deletes.
const DefaultConcurrency = 32

// maxCollectedErrors caps memory spent on failure details when the backend is down.
const maxCollectedErrors = 50

// Report summarizes one fan-out.
type Report struct {
	Attempted int
	Deleted   int
	Missing   int
	Failed    int
	Duration  time.Duration
}

// Engine runs brute-force invalidation over the keyspace lattice.
type Engine struct {
	store       cache.Store
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the delete concurrency. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine deleting from store.
func New(store cache.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invalidate deletes every list key for (region, category). Missing keys count as success.
// Backend failures never stop the batch; they are aggregated into the returned error.
func (e *Engine) Invalidate(ctx context.Context, region, category string) (Report, error) {
	start := time.Now()

	var attempted, deleted, missing, failed atomic.Int64
	collector := goerrors.NewCollector(
		goerrors.WithMaxErrors(maxCollectedErrors),
		goerrors.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for key := range keyspace.Lattice(region, category) {
		if ctx.Err() != nil {
			break
		}
		attempted.Add(1)
		g.Go(func() error {
			err := e.store.Delete(gctx, key)
			switch {
			case err == nil:
				deleted.Add(1)
			case errors.Is(err, cache.ErrNotFound):
				missing.Add(1)
			default:
				failed.Add(1)
				collector.Add(goerrors.Wrap(err, goerrors.CategoryExternal, "delete cache key "+key))
			}
			// Failures are collected, never returned, so one bad key cannot cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Attempted: int(attempted.Load()),
		Deleted:   int(deleted.Load()),
		Missing:   int(missing.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	e.metrics.Invalidation(report.Deleted, report.Missing, report.Failed, report.Duration)

	if err := ctx.Err(); err != nil {
		return report, goerrors.Wrap(err, goerrors.CategoryOperation, "invalidation interrupted")
	}
	if collector.HasErrors() {
		e.logger.Warn("cache invalidation incomplete",
			zap.String("region", region),
			zap.String("category", category),
			zap.Int("failed", report.Failed),
			zap.Int("attempted", report.Attempted),
		)
		return report, collector.Merge()
	}

	e.logger.Debug("cache invalidated",
		zap.String("region", region),
		zap.String("category", category),
		zap.Int("deleted", report.Deleted),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
