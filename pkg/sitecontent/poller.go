package sitecontent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultPollInterval is the safety-net poll period. Publish/subscribe is the
// primary mechanism; polling only catches drift from writers that bypassed it.
const DefaultPollInterval = 30 * time.Second

// Poller re-reads the store keys of subscribed documents and publishes the
// ones whose raw values changed since the previous pass.
type Poller struct {
	registry    *Registry
	store       Store
	broadcaster *Broadcaster
	interval    time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]string
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(registry *Registry, store Store, broadcaster *Broadcaster, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		registry:    registry,
		store:       store,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger,
		seen:        make(map[string]string),
	}
}

// Run polls until ctx ends.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Track records the current fingerprint of key, if it is not already
// tracked, and then calls subscribe while no pass can run. Drift that lands
// after the subscriber's first read is therefore caught by the next pass.
func (p *Poller) Track(ctx context.Context, key string, subscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, known := p.seen[key]; !known {
		if spec, ok := p.registry.Get(key); ok {
			fp, err := p.fingerprint(ctx, spec)
			if err != nil {
				p.logger.Warn("poll read failed", "document", key, "err", err)
			} else {
				p.seen[key] = fp
			}
		}
	}
	subscribe()
}

// Check runs one pass and returns the documents it published. A document
// seen for the first time, and not tracked, only records its fingerprint.
func (p *Poller) Check(ctx context.Context) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := p.broadcaster.Keys()
	live := make(map[string]bool, len(keys))
	var changed []string

	for _, key := range keys {
		live[key] = true
		spec, ok := p.registry.Get(key)
		if !ok {
			continue
		}
		fp, err := p.fingerprint(ctx, spec)
		if err != nil {
			p.logger.Warn("poll read failed", "document", key, "err", err)
			continue
		}
		prev, known := p.seen[key]
		p.seen[key] = fp
		if known && prev != fp {
			changed = append(changed, key)
		}
	}

	// forget documents nobody is watching any more
	for key := range p.seen {
		if !live[key] {
			delete(p.seen, key)
		}
	}

	for _, key := range changed {
		p.logger.Debug("poll detected drift", "document", key)
		p.broadcaster.Publish(key)
	}
	return changed
}

func (p *Poller) fingerprint(ctx context.Context, spec DocumentSpec) (string, error) {
	var b strings.Builder
	for _, k := range spec.Chain.StoreKeys() {
		v, err := p.store.Get(ctx, k)
		switch {
		case errors.Is(err, ErrKeyNotFound):
			b.WriteString("\x00absent")
		case err != nil:
			return "", err
		default:
			b.WriteString(v)
		}
		b.WriteByte('\x1f')
	}
	return b.String(), nil
}
