// Package metrics exposes the prometheus collectors of the directory service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "directory"

// Recorder holds every collector on its own registry so that tests and multiple
// containers in one process never collide on registration.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups         *prometheus.CounterVec
	cacheErrors          *prometheus.CounterVec
	invalidationKeys     *prometheus.CounterVec
	invalidationDuration prometheus.Histogram
	storeErrors          *prometheus.CounterVec
	ratingConflicts      prometheus.Counter
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New creates a Recorder backed by a fresh registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by query shape and result.",
		}, []string{"kind", "result"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Cache failures absorbed by the service, by operation.",
		}, []string{"op"}),
		invalidationKeys: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidation_keys_total",
			Help:      "Invalidation deletes by outcome.",
		}, []string{"outcome"}),
		invalidationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invalidation_duration_seconds",
			Help:      "Duration of a full invalidation fan-out.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Record store failures by operation.",
		}, []string{"op"}),
		ratingConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_conflicts_total",
			Help:      "Rating updates retried after a concurrent writer won the compare-and-swap.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the collectors in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// CacheLookup counts a lookup for a query shape such as "point" or "category".
func (r *Recorder) CacheLookup(kind string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

// CacheError counts an absorbed cache failure.
func (r *Recorder) CacheError(op string) {
	if r == nil {
		return
	}
	r.cacheErrors.WithLabelValues(op).Inc()
}

// Invalidation records the outcome counts and duration of one fan-out.
func (r *Recorder) Invalidation(deleted, missing, failed int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.invalidationKeys.WithLabelValues("deleted").Add(float64(deleted))
	r.invalidationKeys.WithLabelValues("missing").Add(float64(missing))
	r.invalidationKeys.WithLabelValues("failed").Add(float64(failed))
	r.invalidationDuration.Observe(elapsed.Seconds())
}

// StoreError counts a record store failure.
func (r *Recorder) StoreError(op string) {
	if r == nil {
		return
	}
	r.storeErrors.WithLabelValues(op).Inc()
}

// RatingConflict counts a lost compare-and-swap on a rating update.
func (r *Recorder) RatingConflict() {
	if r == nil {
		return
	}
	r.ratingConflicts.Inc()
}

// HTTPRequest records one served request.
func (r *Recorder) HTTPRequest(method, route, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, status).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
