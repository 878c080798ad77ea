package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoadTamar/aws-hw2/internal/cacheinfra"
)

// ErrNotFound is returned by Store.Get on a miss and by Store.Delete when the key is absent.
var ErrNotFound = cacheinfra.ErrNotFound

// Store is the byte-level cache contract. Values are opaque serialized entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Codec serializes values of T into cache entries.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// ErrorHandler observes cache failures that were absorbed instead of returned.
// op is one of "get", "set" or "decode".
type ErrorHandler func(op, key string, err error)

// Load reads and decodes key. A miss returns ErrNotFound.
func Load[T any](ctx context.Context, store Store, codec Codec[T], key string) (T, error) {
	var zero T

	data, err := store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	value, err := codec.Decode(data)
	if err != nil {
		return zero, &DecodeError{Key: key, Err: err}
	}
	return value, nil
}

// Save encodes value and stores it under key.
func Save[T any](ctx context.Context, store Store, codec Codec[T], key string, value T) error {
	data, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return store.Set(ctx, key, data)
}

// GetOrFetch serves key from the cache, falling back to fetch on a miss and populating the
// cache with the fetched value. Cache failures degrade to a fetch and are reported to onErr;
// only fetch errors are returned. hit reports whether the value came from the cache.
func GetOrFetch[T any](ctx context.Context, store Store, codec Codec[T], key string, fetch FetchFn[T], onErr ErrorHandler) (value T, hit bool, err error) {
	if onErr == nil {
		onErr = func(string, string, error) {}
	}

	value, err = Load(ctx, store, codec, key)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, ErrNotFound):
	case isDecodeError(err):
		onErr("decode", key, err)
	default:
		onErr("get", key, err)
	}

	value, err = fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if err := Save(ctx, store, codec, key, value); err != nil {
		onErr("set", key, err)
	}
	return value, false, nil
}

// DecodeError reports a cache entry that could not be decoded.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode cache entry %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func isDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}
