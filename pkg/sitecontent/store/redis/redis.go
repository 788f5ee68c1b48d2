package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/site-content/pkg/sitecontent"
)

// Backend stores entries as Redis strings. All keys are namespaced so several
// sites can share one Redis.
type Backend struct {
	rdb       redis.UniversalClient
	namespace string
}

// New creates a store over an existing client.
func New(rdb redis.UniversalClient, namespace string) (*Backend, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Backend{rdb: rdb, namespace: namespace}, nil
}

// EntryKey returns the Redis key holding a store key.
// Format: sitecontent:{namespace}:store:{key}
func EntryKey(namespace, key string) string {
	return fmt.Sprintf("sitecontent:%s:store:%s", namespace, key)
}

// Ping verifies Redis connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Get returns the value for key
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.rdb.Get(ctx, EntryKey(b.namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sitecontent.ErrKeyNotFound
	}
	if err != nil {
		return "", &sitecontent.StoreError{Backend: "redis", Key: key, Op: "get", Err: err}
	}
	return v, nil
}

// Set stores value under key with no expiry
func (b *Backend) Set(ctx context.Context, key, value string) error {
	if err := b.rdb.Set(ctx, EntryKey(b.namespace, key), value, 0).Err(); err != nil {
		return &sitecontent.StoreError{Backend: "redis", Key: key, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes key
func (b *Backend) Remove(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, EntryKey(b.namespace, key)).Err(); err != nil {
		return &sitecontent.StoreError{Backend: "redis", Key: key, Op: "remove", Err: err}
	}
	return nil
}
