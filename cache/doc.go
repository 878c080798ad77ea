// Package cache provides the look-aside cache contract used by the record directory.
//
// # Overview
//
// The package exports:
//
//   - Store: a byte-level key/value cache with an explicit miss error (ErrNotFound)
//   - Codec: serializes typed values into cache entries
//   - GetOrFetch, Load, Save: typed helpers over a Store
//   - Config and NewStore: a facade over the in-process (sturdyc) and memcached backends
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	record, hit, err := cache.GetOrFetch(ctx, store, recordCodec, keyspace.Point(name),
//		func(ctx context.Context) (Record, error) {
//			return records.Get(ctx, name)
//		},
//		func(op, key string, err error) {
//			logger.Warn("cache failure", zap.String("op", op), zap.String("key", key), zap.Error(err))
//		},
//	)
//
// # Failure Semantics
//
// The cache is never the source of truth. GetOrFetch treats backend errors and undecodable
// entries as misses, reports them through the ErrorHandler and serves the fetched value.
// Only errors from the fetch function reach the caller.
//
// Delete returns ErrNotFound for absent keys on every backend so that invalidation can tell
// a removed entry from one that was never cached.
//
// # See Also
//
// Key construction lives in the keyspace package.
package cache
