package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cespare/xxhash/v2"
)

const (
	// memcachedMaxKeyLen is the protocol limit on key length.
	memcachedMaxKeyLen = 250
	// hashedKeyPrefixLen keeps long keys readable in server dumps.
	hashedKeyPrefixLen = 200
)

// memcacheClient is the subset of *memcache.Client the store uses.
type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

type memcachedStore struct {
	client     memcacheClient
	expiration int32
}

// NewMemcachedStore creates the memcached backend.
func NewMemcachedStore(cfg Config) (*memcachedStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := memcache.New(cfg.Memcached.Servers...)
	if cfg.Memcached.Timeout > 0 {
		client.Timeout = cfg.Memcached.Timeout
	}
	if cfg.Memcached.MaxIdleConns > 0 {
		client.MaxIdleConns = cfg.Memcached.MaxIdleConns
	}
	return newMemcachedStore(client, cfg), nil
}

func newMemcachedStore(client memcacheClient, cfg Config) *memcachedStore {
	return &memcachedStore{
		client:     client,
		expiration: int32(cfg.TTL.Seconds()),
	}
}

func (s *memcachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, err := s.client.Get(memcachedKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memcached get %q: %w", key, err)
	}
	return item.Value, nil
}

func (s *memcachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.client.Set(&memcache.Item{
		Key:        memcachedKey(key),
		Value:      value,
		Expiration: s.expiration,
	})
	if err != nil {
		return fmt.Errorf("memcached set %q: %w", key, err)
	}
	return nil
}

func (s *memcachedStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.client.Delete(memcachedKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("memcached delete %q: %w", key, err)
	}
	return nil
}

// memcachedKey maps a logical key onto the memcached key alphabet.
// Keys that are too long or contain whitespace or control bytes are replaced by
// a readable prefix plus an xxhash digest of the full key.
func memcachedKey(key string) string {
	if len(key) <= memcachedMaxKeyLen && legalMemcachedKey(key) {
		return key
	}

	prefix := key
	if len(prefix) > hashedKeyPrefixLen {
		prefix = prefix[:hashedKeyPrefixLen]
	}
	buf := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		if c := prefix[i]; c > ' ' && c != 0x7f {
			buf = append(buf, c)
		}
	}
	return string(buf) + "#" + strconv.FormatUint(xxhash.Sum64String(key), 16)
}

func legalMemcachedKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}
