package sitecontent

import (
	"fmt"
	"sort"
	"sync"
)

// Tier is one candidate source in a fallback chain.
type Tier struct {
	Source SourceTier

	// StoreKey is read by store tiers
	StoreKey string

	// URL is fetched by the remote tier
	URL string

	// Migrate normalizes an older payload shape before validation
	Migrate MigrateFunc

	// Default is the payload of the compiled-in tier
	Default map[string]any
}

// FallbackChain is the ordered list of tiers tried for one document. It is
// configuration: built once, never mutated while resolving.
type FallbackChain []Tier

// StandardChain builds primary → legacy → remote → compiled default, leaving
// out tiers whose key or URL is empty. migrate applies to the legacy and
// remote tiers.
func StandardChain(primaryKey, legacyKey, remoteURL string, migrate MigrateFunc, def map[string]any) FallbackChain {
	var chain FallbackChain
	if primaryKey != "" {
		chain = append(chain, Tier{Source: SourcePrimaryStore, StoreKey: primaryKey})
	}
	if legacyKey != "" {
		chain = append(chain, Tier{Source: SourceLegacyStore, StoreKey: legacyKey, Migrate: migrate})
	}
	if remoteURL != "" {
		chain = append(chain, Tier{Source: SourceRemoteDefault, URL: remoteURL, Migrate: migrate})
	}
	return append(chain, Tier{Source: SourceCompiledDefault, Default: def})
}

// Validate checks that the chain always terminates at a compiled default.
func (c FallbackChain) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidChain)
	}
	for i, t := range c {
		last := i == len(c)-1
		switch t.Source {
		case SourcePrimaryStore, SourceLegacyStore:
			if t.StoreKey == "" {
				return fmt.Errorf("%w: tier %d (%s) has no store key", ErrInvalidChain, i, t.Source)
			}
		case SourceRemoteDefault:
			if t.URL == "" {
				return fmt.Errorf("%w: tier %d (%s) has no url", ErrInvalidChain, i, t.Source)
			}
		case SourceCompiledDefault:
			if !last {
				return fmt.Errorf("%w: compiled default must be the last tier", ErrInvalidChain)
			}
			if t.Default == nil {
				return fmt.Errorf("%w: compiled default has no payload", ErrInvalidChain)
			}
		default:
			return fmt.Errorf("%w: tier %d has unknown source %q", ErrInvalidChain, i, t.Source)
		}
		if last && t.Source != SourceCompiledDefault {
			return fmt.Errorf("%w: last tier must be the compiled default", ErrInvalidChain)
		}
	}
	return nil
}

// StoreKeys lists the store keys read by the chain, in order.
func (c FallbackChain) StoreKeys() []string {
	var keys []string
	for _, t := range c {
		if t.Source.IsStore() {
			keys = append(keys, t.StoreKey)
		}
	}
	return keys
}

// Tier returns the first tier with the given source.
func (c FallbackChain) Tier(source SourceTier) (Tier, bool) {
	for _, t := range c {
		if t.Source == source {
			return t, true
		}
	}
	return Tier{}, false
}

// Default returns the compiled default payload.
func (c FallbackChain) Default() map[string]any {
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1].Default
}

// DocumentSpec declares one logical document.
type DocumentSpec struct {
	Key    string
	Title  string
	Schema *Schema
	Chain  FallbackChain
}

// PrimaryKey is the store key writers save to.
func (s DocumentSpec) PrimaryKey() string {
	t, _ := s.Chain.Tier(SourcePrimaryStore)
	return t.StoreKey
}

// Validate checks the chain and that the compiled default satisfies the
// schema.
func (s DocumentSpec) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: document key is required", ErrInvalidChain)
	}
	if err := s.Chain.Validate(); err != nil {
		return fmt.Errorf("document %s: %w", s.Key, err)
	}
	if err := s.Schema.Validate(s.Chain.Default()); err != nil {
		return fmt.Errorf("document %s: compiled default: %w", s.Key, err)
	}
	return nil
}

// Registry holds the document specs known to a service.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]DocumentSpec
	byKey map[string][]string
}

// NewRegistry validates and registers specs.
func NewRegistry(specs ...DocumentSpec) (*Registry, error) {
	r := &Registry{
		specs: make(map[string]DocumentSpec),
		byKey: make(map[string][]string),
	}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for compiled-in tables.
func MustRegistry(specs ...DocumentSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds or replaces a spec.
func (r *Registry) Register(spec DocumentSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.specs[spec.Key]; ok {
		for _, k := range old.Chain.StoreKeys() {
			r.byKey[k] = removeString(r.byKey[k], old.Key)
			if len(r.byKey[k]) == 0 {
				delete(r.byKey, k)
			}
		}
	}
	r.specs[spec.Key] = spec
	for _, k := range spec.Chain.StoreKeys() {
		r.byKey[k] = append(r.byKey[k], spec.Key)
	}
	return nil
}

// Get returns the spec for a document key.
func (r *Registry) Get(key string) (DocumentSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[key]
	return s, ok
}

// All returns every spec ordered by key.
func (r *Registry) All() []DocumentSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DocumentSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DocumentsForStoreKey returns the documents whose chain reads storeKey.
func (r *Registry) DocumentsForStoreKey(storeKey string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byKey[storeKey]...)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
