package sitecontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RemoteTimeout bounds a remote tier fetch. A fetch that takes longer counts
// as a failed tier.
const RemoteTimeout = 5 * time.Second

// Resolver walks fallback chains.
type Resolver struct {
	registry *Registry
	store    Store
	fetcher  Fetcher
	logger   *slog.Logger
	now      func() time.Time

	remoteTimeout time.Duration
	flight        singleflight.Group

	mu     sync.RWMutex
	remote map[string][]byte
}

// NewResolver creates a resolver over store. fetcher may be nil when no chain
// has a remote tier.
func NewResolver(registry *Registry, store Store, fetcher Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry:      registry,
		store:         store,
		fetcher:       fetcher,
		logger:        logger,
		now:           time.Now,
		remoteTimeout: RemoteTimeout,
		remote:        make(map[string][]byte),
	}
}

// Resolve returns the authoritative document for a registered key. It only
// fails for unknown keys.
func (r *Resolver) Resolve(ctx context.Context, key string) (*Document, error) {
	spec, ok := r.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, key)
	}
	return r.ResolveChain(ctx, key, spec.Schema, spec.Chain)
}

// ResolveChain resolves key through an explicit chain.
func (r *Resolver) ResolveChain(ctx context.Context, key string, schema *Schema, chain FallbackChain) (*Document, error) {
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	for _, tier := range chain {
		var raw string
		switch tier.Source {
		case SourceCompiledDefault:
			return &Document{
				Key:        key,
				Payload:    clonePayload(tier.Default),
				SourceTier: SourceCompiledDefault,
				LoadedAt:   r.now().UTC(),
			}, nil

		case SourcePrimaryStore, SourceLegacyStore:
			v, err := r.store.Get(ctx, tier.StoreKey)
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			if err != nil {
				r.logger.Warn("store read failed, trying next tier", "document", key, "tier", tier.Source, "store_key", tier.StoreKey, "err", err)
				continue
			}
			raw = v

		case SourceRemoteDefault:
			body, err := r.fetchRemote(ctx, tier.URL)
			if err != nil {
				r.logger.Debug("remote tier failed, trying next tier", "document", key, "url", tier.URL, "err", err)
				continue
			}
			raw = string(body)
		}

		doc, err := decode(raw, key, schema, tier.Migrate)
		if err != nil {
			r.logger.Debug("tier rejected, trying next tier", "document", key, "tier", tier.Source, "err", err)
			continue
		}
		doc.SourceTier = tier.Source
		doc.LoadedAt = r.now().UTC()
		return doc, nil
	}

	// Validate guarantees the compiled default is last.
	return nil, fmt.Errorf("%w: %s fell off the chain", ErrInvalidChain, key)
}

// Invalidate forgets cached remote documents for key so the next resolution
// fetches them again.
func (r *Resolver) Invalidate(key string) {
	spec, ok := r.registry.Get(key)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range spec.Chain {
		if t.Source == SourceRemoteDefault {
			delete(r.remote, t.URL)
		}
	}
}

// fetchRemote shares one in-flight request per URL between all callers. The
// request runs detached from any single caller; each caller stops waiting
// when its own context ends or the timeout passes.
func (r *Resolver) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	r.mu.RLock()
	body, ok := r.remote[url]
	r.mu.RUnlock()
	if ok {
		return body, nil
	}
	if r.fetcher == nil {
		return nil, &RemoteFetchError{URL: url, Err: errors.New("no fetcher configured")}
	}

	ch := r.flight.DoChan(url, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.remoteTimeout)
		defer cancel()
		b, err := r.fetcher.Fetch(fctx, url)
		if err != nil {
			var fe *RemoteFetchError
			if errors.As(err, &fe) {
				return nil, err
			}
			return nil, &RemoteFetchError{URL: url, Err: err}
		}
		r.mu.Lock()
		r.remote[url] = b
		r.mu.Unlock()
		return b, nil
	})

	timer := time.NewTimer(r.remoteTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, &RemoteFetchError{URL: url, Err: ctx.Err()}
	case <-timer.C:
		return nil, &RemoteFetchError{URL: url, Err: context.DeadlineExceeded}
	}
}
