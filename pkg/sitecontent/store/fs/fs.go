package fs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tendant/site-content/pkg/sitecontent"
)

const (
	fileExt    = ".json"
	tempPrefix = ".tmp-"
)

// Backend is a filesystem implementation of the sitecontent.Store interface.
// Each key is one file under the base directory.
type Backend struct {
	mu      sync.RWMutex
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing entries
}

// New creates a new filesystem store
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

// Dir returns the directory holding the entries
func (b *Backend) Dir() string {
	return b.baseDir
}

// FileName maps a store key to its file name
func FileName(key string) string {
	return url.QueryEscape(key) + fileExt
}

// KeyFromFileName maps a file name back to its store key. Temporary files and
// foreign files report false.
func KeyFromFileName(name string) (string, bool) {
	name = filepath.Base(name)
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (b *Backend) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("key is required")
	}
	return filepath.Join(b.baseDir, FileName(key)), nil
}

// Get reads the entry for key
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	p, err := b.path(key)
	if err != nil {
		return "", err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", sitecontent.ErrKeyNotFound
	}
	if err != nil {
		return "", &sitecontent.StoreError{Backend: "fs", Key: key, Op: "get", Err: err}
	}
	return string(data), nil
}

// Set writes the entry atomically through a temporary file
func (b *Backend) Set(ctx context.Context, key, value string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp(b.baseDir, tempPrefix+"*")
	if err != nil {
		return &sitecontent.StoreError{Backend: "fs", Key: key, Op: "set", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return &sitecontent.StoreError{Backend: "fs", Key: key, Op: "set", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &sitecontent.StoreError{Backend: "fs", Key: key, Op: "set", Err: err}
	}
	if err := os.Rename(tmpName, p); err != nil {
		return &sitecontent.StoreError{Backend: "fs", Key: key, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes the entry for key
func (b *Backend) Remove(ctx context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &sitecontent.StoreError{Backend: "fs", Key: key, Op: "remove", Err: err}
	}
	return nil
}
