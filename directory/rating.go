package directory

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// maxRatingRetryDelay caps the backoff between compare-and-swap attempts.
const maxRatingRetryDelay = 100 * time.Millisecond

// Aggregate folds sample into the running mean held by current.
func Aggregate(current Record, sample float64) (rating float64, count int) {
	n := float64(current.RatingCount)
	return (current.Rating*n + sample) / (n + 1), current.RatingCount + 1
}

// SubmitRating folds sample into the rating of the record called name and returns the
// updated record. Samples outside [0,5] are accepted and logged.
//
// With Options.CompareAndSwap, a write that keeps losing to concurrent ratings fails with
// a Conflict error (HTTP 409) once Options.RatingAttempts is exhausted. Callers may resubmit.
func (s *Service) SubmitRating(ctx context.Context, name string, sample float64) (Record, error) {
	if name == "" {
		return Record{}, badRequest("name is required")
	}
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return Record{}, badRequest("rating must be a finite number")
	}
	if sample < MinRating || sample > MaxRating {
		s.logger.Warn("rating sample outside [0,5] accepted",
			zap.String("name", name),
			zap.Float64("sample", sample),
		)
	}

	var (
		updated Record
		err     error
	)
	if s.opts.CompareAndSwap {
		updated, err = retry.DoWithData(
			func() (Record, error) {
				return s.applyRating(ctx, name, sample, true)
			},
			retry.Context(ctx),
			retry.Attempts(s.opts.RatingAttempts),
			retry.Delay(s.opts.RatingRetryDelay),
			retry.MaxDelay(maxRatingRetryDelay),
			retry.MaxJitter(s.opts.RatingRetryDelay),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
			retry.RetryIf(func(err error) bool {
				return errors.Is(err, ErrStaleRating)
			}),
			retry.OnRetry(func(attempt uint, err error) {
				s.metrics.RatingConflict()
			}),
			retry.LastErrorOnly(true),
		)
		if errors.Is(err, ErrStaleRating) {
			return Record{}, conflict(err, "rating for "+name+" kept changing, giving up")
		}
	} else {
		updated, err = s.applyRating(ctx, name, sample, false)
	}
	if err != nil {
		return Record{}, err
	}

	if s.opts.CacheEnabled {
		committed := context.WithoutCancel(ctx)
		s.prime(committed, updated)
		s.invalidate(committed, updated.Region, updated.Category)
	}
	return updated, nil
}

// applyRating runs one read-aggregate-write cycle. ErrStaleRating is returned bare so
// the caller can retry on it.
func (s *Service) applyRating(ctx context.Context, name string, sample float64, cas bool) (Record, error) {
	current, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, notFound(name)
		}
		s.metrics.StoreError("get")
		return Record{}, internal(err, "failed to read record")
	}

	rating, count := Aggregate(current, sample)
	update := RatingUpdate{Name: name, Rating: rating, Count: count}
	if cas {
		expected := current.RatingCount
		update.ExpectedCount = &expected
	}

	if err := s.store.UpdateRating(ctx, update); err != nil {
		switch {
		case errors.Is(err, ErrStaleRating):
			return Record{}, err
		case errors.Is(err, ErrRecordNotFound):
			return Record{}, notFound(name)
		}
		s.metrics.StoreError("update_rating")
		return Record{}, internal(err, "failed to update rating")
	}

	current.Rating = rating
	current.RatingCount = count
	return current, nil
}
