package cacheinfra

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// breakerStore stops calling a failing remote cache for a while so that requests
// degrade to the record store quickly instead of waiting on socket timeouts.
type breakerStore struct {
	next    KeyValueStore
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a circuit breaker. Misses never count as failures.
func NewBreakerStore(next KeyValueStore, cfg BreakerConfig, logger *zap.Logger) KeyValueStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "cache",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &breakerStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (s *breakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.next.Get(ctx, key)
	})
	if err != nil {
		return nil, s.wrap(err)
	}
	return value.([]byte), nil
}

func (s *breakerStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, value)
	})
	return s.wrap(err)
}

func (s *breakerStore) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return s.wrap(err)
}

func (s *breakerStore) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("cache unavailable: %w", err)
	}
	return err
}
