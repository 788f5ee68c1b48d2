package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tendant/site-content/pkg/sitecontent"
)

// Backend is an in-memory implementation of the sitecontent.Store interface
type Backend struct {
	mu      sync.RWMutex
	entries map[string]string
	used    int
	quota   int
}

// Option configures the memory backend
type Option func(*Backend)

// WithQuota limits the total bytes of keys plus values, like a browser's
// local storage quota. Zero means unlimited.
func WithQuota(bytes int) Option {
	return func(b *Backend) {
		b.quota = bytes
	}
}

// New creates a new in-memory store
func New(opts ...Option) *Backend {
	b := &Backend{
		entries: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get returns the value for key
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.entries[key]
	if !ok {
		return "", sitecontent.ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key
func (b *Backend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	used := b.used
	if old, ok := b.entries[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if b.quota > 0 && used > b.quota {
		return fmt.Errorf("%w: %d of %d bytes", sitecontent.ErrQuotaExceeded, used, b.quota)
	}

	b.entries[key] = value
	b.used = used
	return nil
}

// Remove deletes key
func (b *Backend) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.entries[key]; ok {
		b.used -= len(key) + len(old)
		delete(b.entries, key)
	}
	return nil
}

// Len returns the number of stored keys
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
