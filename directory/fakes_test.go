package directory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/YoadTamar/aws-hw2/cache"
)

// fakeStore is an in-memory RecordStore that counts calls and can inject failures.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]Record
	calls   map[string]int
	errs    map[string]error
	limits  []int

	// afterGet runs once, outside the lock, after the first successful Get.
	afterGet     func(name string)
	afterGetDone atomic.Bool
}

func newFakeStore(records ...Record) *fakeStore {
	s := &fakeStore{
		records: make(map[string]Record),
		calls:   make(map[string]int),
		errs:    make(map[string]error),
	}
	for _, r := range records {
		s.records[r.Name] = r
	}
	return s
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) record(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[name]
	return r, ok
}

func (s *fakeStore) enter(op string) error {
	s.calls[op]++
	return s.errs[op]
}

func (s *fakeStore) Get(ctx context.Context, name string) (Record, error) {
	s.mu.Lock()
	if err := s.enter("get"); err != nil {
		s.mu.Unlock()
		return Record{}, err
	}
	r, ok := s.records[name]
	s.mu.Unlock()

	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if s.afterGet != nil && s.afterGetDone.CompareAndSwap(false, true) {
		s.afterGet(name)
	}
	return r, nil
}

func (s *fakeStore) Insert(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("insert"); err != nil {
		return err
	}
	if _, ok := s.records[record.Name]; ok {
		return ErrRecordExists
	}
	s.records[record.Name] = record
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("delete"); err != nil {
		return err
	}
	delete(s.records, name)
	return nil
}

func (s *fakeStore) UpdateRating(ctx context.Context, update RatingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("update"); err != nil {
		return err
	}
	r, ok := s.records[update.Name]
	if !ok {
		return ErrRecordNotFound
	}
	if update.ExpectedCount != nil && *update.ExpectedCount != r.RatingCount {
		return ErrStaleRating
	}
	r.Rating = update.Rating
	r.RatingCount = update.Count
	s.records[update.Name] = r
	return nil
}

func (s *fakeStore) query(op string, limit int, match func(Record) bool) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(op); err != nil {
		return nil, err
	}
	s.limits = append(s.limits, limit)

	var out []Record
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) QueryByCategory(ctx context.Context, category string, limit int) ([]Record, error) {
	return s.query("query", limit, func(r Record) bool { return r.Category == category })
}

func (s *fakeStore) QueryByRegion(ctx context.Context, region string, limit int) ([]Record, error) {
	return s.query("query", limit, func(r Record) bool { return r.Region == region })
}

func (s *fakeStore) QueryByRegionAndCategory(ctx context.Context, region, category string, limit int) ([]Record, error) {
	return s.query("query", limit, func(r Record) bool { return r.Region == region && r.Category == category })
}

// countingCache is an in-memory cache.Store that counts calls and can inject failures.
type countingCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	deletes int
	failGet error
	failSet error
	failDel error
}

func newCountingCache() *countingCache {
	return &countingCache{data: make(map[string][]byte)}
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, c.failGet
	}
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	c.data[key] = value
	return nil
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	if c.failDel != nil {
		return c.failDel
	}
	if _, ok := c.data[key]; !ok {
		return cache.ErrNotFound
	}
	delete(c.data, key)
	return nil
}

func (c *countingCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *countingCache) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets + c.sets + c.deletes
}

func (c *countingCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	return out
}

// cancelOnCommit cancels the caller's context as soon as a mutation has committed,
// like a client that disconnects while the response is being prepared.
type cancelOnCommit struct {
	*fakeStore
	cancel context.CancelFunc
}

func (s cancelOnCommit) Insert(ctx context.Context, record Record) error {
	err := s.fakeStore.Insert(ctx, record)
	s.cancel()
	return err
}

func (s cancelOnCommit) Delete(ctx context.Context, name string) error {
	err := s.fakeStore.Delete(ctx, name)
	s.cancel()
	return err
}

func (s cancelOnCommit) UpdateRating(ctx context.Context, update RatingUpdate) error {
	err := s.fakeStore.UpdateRating(ctx, update)
	s.cancel()
	return err
}
