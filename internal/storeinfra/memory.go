package storeinfra

import (
	"context"
	"sort"

	"github.com/YoadTamar/aws-hw2/directory"
	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps records in a concurrent map.
type MemoryStore struct {
	records *xsync.MapOf[string, directory.Record]
}

var _ directory.RecordStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: xsync.NewMapOf[string, directory.Record]()}
}

func (s *MemoryStore) Get(ctx context.Context, name string) (directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return directory.Record{}, err
	}
	r, ok := s.records.Load(name)
	if !ok {
		return directory.Record{}, directory.ErrRecordNotFound
	}
	return r, nil
}

func (s *MemoryStore) Insert(ctx context.Context, record directory.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, loaded := s.records.LoadOrStore(record.Name, record); loaded {
		return directory.ErrRecordExists
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.records.Delete(name)
	return nil
}

func (s *MemoryStore) UpdateRating(ctx context.Context, update directory.RatingUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var result error
	s.records.Compute(update.Name, func(current directory.Record, loaded bool) (directory.Record, bool) {
		if !loaded {
			result = directory.ErrRecordNotFound
			return current, true
		}
		if update.ExpectedCount != nil && *update.ExpectedCount != current.RatingCount {
			result = directory.ErrStaleRating
			return current, false
		}
		current.Rating = update.Rating
		current.RatingCount = update.Count
		return current, false
	})
	return result
}

func (s *MemoryStore) QueryByCategory(ctx context.Context, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit, func(r directory.Record) bool {
		return r.Category == category
	})
}

func (s *MemoryStore) QueryByRegion(ctx context.Context, region string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit, func(r directory.Record) bool {
		return r.Region == region
	})
}

func (s *MemoryStore) QueryByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]directory.Record, error) {
	return s.query(ctx, limit, func(r directory.Record) bool {
		return r.Region == region && r.Category == category
	})
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	return s.records.Size()
}

func (s *MemoryStore) query(ctx context.Context, limit int, match func(directory.Record) bool) ([]directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]directory.Record, 0)
	s.records.Range(func(_ string, r directory.Record) bool {
		if match(r) {
			out = append(out, r)
		}
		return true
	})
	sortByRating(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByRating(records []directory.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Rating != records[j].Rating {
			return records[i].Rating > records[j].Rating
		}
		return records[i].Name < records[j].Name
	})
}
