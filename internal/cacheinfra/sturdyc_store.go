package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// sturdycStore keeps serialized entries in a sharded in-process sturdyc client.
type sturdycStore struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycStore creates the in-process cache backend.
func NewSturdycStore(cfg Config) (*sturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &sturdycStore{client: client}, nil
}

func (s *sturdycStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := s.client.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *sturdycStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.client.Set(key, value)
	return nil
}

// Delete reports ErrNotFound for absent keys, matching the memcached backend.
func (s *sturdycStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.client.Get(key); !ok {
		return ErrNotFound
	}
	s.client.Delete(key)
	return nil
}

// Len returns the number of entries currently held.
func (s *sturdycStore) Len() int {
	return s.client.Size()
}
