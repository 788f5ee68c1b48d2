// Package fswatch turns writes to a file-backed store into change notices,
// so processes sharing one content directory see each other's saves.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tendant/site-content/pkg/sitecontent"
	"github.com/tendant/site-content/pkg/sitecontent/store/fs"
)

// DefaultDebounce coalesces the create/write/rename burst of one save.
const DefaultDebounce = 100 * time.Millisecond

// Relay implements sitecontent.Relay over a watched directory
type Relay struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures the relay
type Option func(*Relay)

// WithDebounce sets the quiet period before a changed file is reported
func WithDebounce(d time.Duration) Option {
	return func(r *Relay) {
		r.debounce = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// New creates a relay watching dir, normally fs.Backend.Dir().
func New(dir string, opts ...Option) *Relay {
	r := &Relay{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Announce is a no-op: the file write is the announcement.
func (r *Relay) Announce(ctx context.Context, documentKey string) error {
	return nil
}

// Listen watches the directory and reports changed store keys until ctx ends.
func (r *Relay) Listen(ctx context.Context, deliver func(sitecontent.Notice)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}
	r.logger.Debug("Watching content directory", "dir", r.dir)

	tick := r.debounce / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := fs.KeyFromFileName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			pending[key] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("Content directory watch error", "dir", r.dir, "err", err)

		case now := <-ticker.C:
			var ready []string
			for key, at := range pending {
				if now.Sub(at) >= r.debounce {
					ready = append(ready, key)
				}
			}
			sort.Strings(ready)
			for _, key := range ready {
				delete(pending, key)
				deliver(sitecontent.Notice{StoreKey: key})
			}
		}
	}
}
