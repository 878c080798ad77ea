package directory

import (
	"context"

	"github.com/YoadTamar/aws-hw2/invalidation"
)

// RecordStore is the durable source of truth for records.
type RecordStore interface {
	// Get returns ErrRecordNotFound when name is absent.
	Get(ctx context.Context, name string) (Record, error)
	// Insert returns ErrRecordExists when name is taken.
	Insert(ctx context.Context, record Record) error
	Delete(ctx context.Context, name string) error
	// UpdateRating returns ErrRecordNotFound for unknown names and ErrStaleRating when
	// ExpectedCount is set and no longer matches.
	UpdateRating(ctx context.Context, update RatingUpdate) error

	// Queries return at most limit records ordered by rating, highest first.
	QueryByCategory(ctx context.Context, category string, limit int) ([]Record, error)
	QueryByRegion(ctx context.Context, region string, limit int) ([]Record, error)
	QueryByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]Record, error)
}

// Invalidator removes list entries affected by a mutation of a (region, category) pair.
type Invalidator interface {
	Invalidate(ctx context.Context, region, category string) (invalidation.Report, error)
}
