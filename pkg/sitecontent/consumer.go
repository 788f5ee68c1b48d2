package sitecontent

import (
	"context"
	"sync"
)

type resolveFunc func(ctx context.Context, key string) (*Document, error)

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithOnChange registers fn to run after the consumer's state changes.
// Listeners run one at a time, in the order states were applied, on the
// goroutine that resolved; a notification is skipped when a newer state has
// already been delivered. fn must not call Refresh or publish the same key
// synchronously.
//
// Change notifications re-resolve inside Publish, so a slow tier (such as a
// failing remote default, bounded by RemoteTimeout) delays the publisher.
func WithOnChange(fn func(State)) ConsumerOption {
	return func(c *Consumer) {
		c.onChange = append(c.onChange, fn)
	}
}

// Consumer binds one document to a reader. It resolves on activation,
// re-resolves on every change notification and exposes the latest state.
type Consumer struct {
	key        string
	resolve    resolveFunc
	invalidate func(string)
	onChange   []func(State)

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	loaded      chan struct{}
	loadedOnce  sync.Once

	mu      sync.Mutex
	state   State
	closed  bool
	gen     uint64
	applied uint64
	version uint64

	// notifyMu serializes listeners; notified is guarded by it
	notifyMu sync.Mutex
	notified uint64
}

func newConsumer(ctx context.Context, key string, resolve resolveFunc, invalidate func(string), b *Broadcaster, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		key:        key,
		resolve:    resolve,
		invalidate: invalidate,
		loaded:     make(chan struct{}),
		state:      State{Status: StatusLoading},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	// subscribe before the first resolution so no publish is missed
	c.unsubscribe = b.Subscribe(key, func(ChangeEvent) {
		c.load(c.ctx, c.nextGen())
	})

	gen := c.nextGen()
	go c.load(c.ctx, gen)
	return c
}

// Key returns the document key.
func (c *Consumer) Key() string {
	return c.key
}

// State returns a snapshot of the current state.
func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loaded is closed once the first resolution has settled.
func (c *Consumer) Loaded() <-chan struct{} {
	return c.loaded
}

// Refresh drops cached remote data and resolves again. There is no retry
// beyond this one pass.
func (c *Consumer) Refresh(ctx context.Context) State {
	if c.invalidate != nil {
		c.invalidate(c.key)
	}
	c.load(ctx, c.nextGen())
	return c.State()
}

// Close unsubscribes and discards any resolution still in flight. It is safe
// to call more than once.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.unsubscribe()
	c.cancel()
	c.loadedOnce.Do(func() { close(c.loaded) })
}

func (c *Consumer) nextGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

func (c *Consumer) load(ctx context.Context, gen uint64) {
	doc, err := c.resolve(ctx, c.key)

	c.mu.Lock()
	if c.closed || gen < c.applied {
		c.mu.Unlock()
		return
	}
	c.applied = gen

	prev := c.state
	next := prev
	changed := true
	switch {
	case err != nil:
		next = State{Status: StatusError, Data: prev.Data, Err: err}
	case prev.Status == StatusReady && sameResolution(prev.Data, doc):
		// structurally identical, keep the existing document
		changed = false
	default:
		next = State{Status: StatusReady, Data: doc}
	}
	c.state = next
	if changed {
		c.version++
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	c.loadedOnce.Do(func() { close(c.loaded) })
}

// notify delivers the latest applied state to listeners unless it has
// already been delivered.
func (c *Consumer) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	version, state, closed := c.version, c.state, c.closed
	c.mu.Unlock()
	if closed || version <= c.notified {
		return
	}
	c.notified = version
	for _, fn := range c.onChange {
		fn(state)
	}
}
