package sitecontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// service implements the ContentService interface
type service struct {
	registry     *Registry
	store        Store
	fetcher      Fetcher
	relay        Relay
	logger       *slog.Logger
	hooks        Hooks
	pollInterval time.Duration
	origin       string

	resolver    *Resolver
	broadcaster *Broadcaster
	poller      *Poller
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRegistry sets the document registry
func WithRegistry(registry *Registry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithStore sets the keyed store
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithFetcher sets the fetcher used by remote tiers
func WithFetcher(fetcher Fetcher) Option {
	return func(s *service) {
		s.fetcher = fetcher
	}
}

// WithRelay sets the cross-process change relay
func WithRelay(relay Relay) Option {
	return func(s *service) {
		s.relay = relay
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithHooks adds write-path hooks
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks.merge(hooks)
	}
}

// WithPollInterval sets the safety-net poll period. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *service) {
		s.pollInterval = d
	}
}

// WithOrigin sets the identifier stamped on locally published events
func WithOrigin(origin string) Option {
	return func(s *service) {
		s.origin = origin
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (ContentService, error) {
	return newService(options...)
}

func newService(options ...Option) (*service, error) {
	s := &service{
		pollInterval: DefaultPollInterval,
	}

	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.relay == nil {
		s.relay = NewNoopRelay()
	}
	if s.origin == "" {
		s.origin = uuid.NewString()
	}

	s.resolver = NewResolver(s.registry, s.store, s.fetcher, s.logger)
	s.broadcaster = NewBroadcaster(s.origin)
	if s.pollInterval > 0 {
		s.poller = NewPoller(s.registry, s.store, s.broadcaster, s.pollInterval, s.logger)
	}
	return s, nil
}

// Reading

func (s *service) Resolve(ctx context.Context, key string) (*Document, error) {
	return s.resolver.Resolve(ctx, key)
}

func (s *service) Invalidate(key string) {
	s.resolver.Invalidate(key)
}

func (s *service) UseContent(ctx context.Context, key string, opts ...ConsumerOption) (*Consumer, error) {
	if _, ok := s.registry.Get(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, key)
	}
	if s.poller == nil {
		return newConsumer(ctx, key, s.resolver.Resolve, s.resolver.Invalidate, s.broadcaster, opts...), nil
	}
	var c *Consumer
	s.poller.Track(ctx, key, func() {
		c = newConsumer(ctx, key, s.resolver.Resolve, s.resolver.Invalidate, s.broadcaster, opts...)
	})
	return c, nil
}

// Writing

func (s *service) Save(ctx context.Context, key string, payload map[string]any) (*SaveResult, error) {
	spec, ok := s.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, key)
	}
	storeKey := spec.PrimaryKey()
	if storeKey == "" {
		return nil, fmt.Errorf("document %s has no primary store key", key)
	}

	payload, err := s.hooks.executeBeforeSave(ctx, key, payload)
	if err != nil {
		s.hooks.executeOnError(ctx, "save", err)
		return nil, err
	}
	if err := spec.Schema.Validate(payload); err != nil {
		return nil, &DecodeError{Key: key, Kind: SchemaMismatch, Err: err}
	}
	raw, err := Encode(&Document{Key: key, Payload: payload})
	if err != nil {
		return nil, err
	}

	result := &SaveResult{
		Key:      key,
		StoreKey: storeKey,
		SavedAt:  time.Now().UTC(),
	}

	if err := s.store.Set(ctx, storeKey, raw); err != nil {
		werr := &StoreWriteError{Key: storeKey, Err: err}
		s.logger.Warn("Failed to persist document, change may not survive a reload", "document", key, "store_key", storeKey, "err", err)
		s.hooks.executeOnError(ctx, "save", werr)
		result.Warning = "the change could not be stored and may not persist"
		return result, werr
	}
	result.Persisted = true

	s.broadcaster.Publish(key)
	if err := s.relay.Announce(ctx, key); err != nil {
		s.logger.Warn("Failed to announce change", "document", key, "err", err)
	}

	if err := s.hooks.executeAfterSave(ctx, result); err != nil {
		s.logger.Warn("After-save hook failed", "document", key, "err", err)
	}
	return result, nil
}

func (s *service) Restore(ctx context.Context, keys ...string) error {
	specs := make([]DocumentSpec, 0, len(keys))
	if len(keys) == 0 {
		specs = s.registry.All()
	}
	for _, k := range keys {
		spec, ok := s.registry.Get(k)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDocument, k)
		}
		specs = append(specs, spec)
	}

	var errs []error
	for _, spec := range specs {
		for _, storeKey := range spec.Chain.StoreKeys() {
			if err := s.store.Remove(ctx, storeKey); err != nil {
				errs = append(errs, &StoreError{Backend: "store", Key: storeKey, Op: "remove", Err: err})
			}
		}
		s.broadcaster.Publish(spec.Key)
		if err := s.relay.Announce(ctx, spec.Key); err != nil {
			s.logger.Warn("Failed to announce change", "document", spec.Key, "err", err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.hooks.executeOnError(ctx, "restore", err)
		return err
	}
	return nil
}

// Notification

func (s *service) Subscribe(key string, listener Listener) func() {
	return s.broadcaster.Subscribe(key, listener)
}

func (s *service) Publish(key string) {
	s.broadcaster.Publish(key)
}

// Registry

func (s *service) Documents() []DocumentSpec {
	return s.registry.All()
}

func (s *service) Document(key string) (DocumentSpec, bool) {
	return s.registry.Get(key)
}

// Run drives the relay listener and the poller until ctx ends.
func (s *service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.relay.Listen(ctx, s.deliverNotice)
	})
	if s.poller != nil {
		g.Go(func() error {
			return s.poller.Run(ctx)
		})
	}

	return g.Wait()
}

func (s *service) deliverNotice(n Notice) {
	if n.Origin != "" && n.Origin == s.origin {
		return
	}
	keys := []string{}
	if n.DocumentKey != "" {
		keys = append(keys, n.DocumentKey)
	}
	if n.StoreKey != "" {
		keys = append(keys, s.registry.DocumentsForStoreKey(n.StoreKey)...)
	}
	for _, k := range keys {
		s.broadcaster.Deliver(ChangeEvent{Key: k, Origin: n.Origin})
	}
}
