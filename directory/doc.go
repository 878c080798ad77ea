// Package directory implements the cache-consistent record service.
//
// A Service sits between callers, a durable RecordStore and a look-aside cache.Store.
// Reads consult the cache first and fall back to the store, populating the cache on the
// way out. Mutations write the store first and then invalidate every list entry the
// record could appear in (see the invalidation package), so a list is never served with
// pre-mutation contents.
//
// The cache is an optimization only. Its failures are logged and counted, and never
// returned to the caller. Store failures on the primary mutation are returned as
// internal errors.
//
// Errors carry go-errors categories; use IsNotFound, IsConflict and IsBadRequest to
// classify them.
//
// Ratings are running means: SubmitRating folds a sample into the stored rating with
// Aggregate. With Options.CompareAndSwap the write is conditional on the rating count
// that was read and retried on conflict. Without it, concurrent ratings of the same
// record race and the last writer wins.
package directory
