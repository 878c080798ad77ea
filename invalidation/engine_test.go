package invalidation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/YoadTamar/aws-hw2/cache"
	"github.com/YoadTamar/aws-hw2/keyspace"
)

// recordingStore remembers deletes and fails keys matching failOn.
type recordingStore struct {
	mu      sync.Mutex
	present map[string]bool
	deleted []string
	failOn  func(key string) bool

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newRecordingStore(present ...string) *recordingStore {
	s := &recordingStore{present: make(map[string]bool)}
	for _, k := range present {
		s.present[k] = true
	}
	return s
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, cache.ErrNotFound
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	return nil
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInFlight.Load()
		if n <= max || s.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.failOn != nil && s.failOn(key) {
		return errors.New("backend unavailable")
	}
	if !s.present[key] {
		return cache.ErrNotFound
	}
	delete(s.present, key)
	return nil
}

func TestEngine_DeletesEntireLattice(t *testing.T) {
	populated := []string{
		keyspace.Region("eu", 10),
		keyspace.RegionCategory("eu", "thai", 100),
		keyspace.Category("thai", 30, 10),
		keyspace.Category("thai", 0, 1),
	}
	store := newRecordingStore(populated...)
	engine := New(store)

	report, err := engine.Invalidate(context.Background(), "eu", "thai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Attempted != keyspace.LatticeSize() {
		t.Errorf("Attempted = %d, want %d", report.Attempted, keyspace.LatticeSize())
	}
	if report.Deleted != len(populated) {
		t.Errorf("Deleted = %d, want %d", report.Deleted, len(populated))
	}
	if report.Missing != keyspace.LatticeSize()-len(populated) {
		t.Errorf("Missing = %d, want %d", report.Missing, keyspace.LatticeSize()-len(populated))
	}
	if len(store.present) != 0 {
		t.Errorf("keys survived invalidation: %v", store.present)
	}
}

func TestEngine_LeavesUnrelatedKeys(t *testing.T) {
	unrelated := []string{
		keyspace.Region("us", 10),
		keyspace.Category("sushi", 30, 10),
		keyspace.Point("Pad Thai House"),
	}
	store := newRecordingStore(unrelated...)

	if _, err := New(store).Invalidate(context.Background(), "eu", "thai"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.present) != len(unrelated) {
		t.Errorf("unrelated keys were deleted, remaining: %v", store.present)
	}
}

func TestEngine_FailuresDoNotShortCircuit(t *testing.T) {
	store := newRecordingStore()
	store.failOn = func(key string) bool {
		return strings.HasPrefix(key, "region::")
	}

	report, err := New(store, WithConcurrency(4)).Invalidate(context.Background(), "eu", "thai")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Errorf("expected external category, got %v", err)
	}

	// Both region key shapes fail at every limit.
	wantFailed := 2 * (keyspace.MaxLimit - keyspace.MinLimit + 1)
	if report.Failed != wantFailed {
		t.Errorf("Failed = %d, want %d", report.Failed, wantFailed)
	}
	if len(store.deleted) != keyspace.LatticeSize() {
		t.Errorf("attempted %d deletes, want %d", len(store.deleted), keyspace.LatticeSize())
	}
	if report.Missing+report.Failed != report.Attempted {
		t.Errorf("outcomes do not add up: %+v", report)
	}
}

func TestEngine_BoundedConcurrency(t *testing.T) {
	store := newRecordingStore()

	if _, err := New(store, WithConcurrency(3)).Invalidate(context.Background(), "eu", "thai"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if max := store.maxInFlight.Load(); max > 3 {
		t.Errorf("observed %d concurrent deletes, limit was 3", max)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	store := newRecordingStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(store).Invalidate(ctx, "eu", "thai")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if report.Attempted != 0 {
		t.Errorf("Attempted = %d, want 0", report.Attempted)
	}
}

func TestNew_Options(t *testing.T) {
	e := New(newRecordingStore(), WithConcurrency(0), WithLogger(nil))
	if e.concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %d, want default %d", e.concurrency, DefaultConcurrency)
	}
	if e.logger == nil {
		t.Error("logger should default to a no-op logger")
	}
}
