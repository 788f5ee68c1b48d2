package sitecontent

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Listener receives change events.
type Listener func(ChangeEvent)

type subscription struct {
	key      string
	listener Listener
	active   atomic.Bool
}

// Broadcaster is the process-wide publish/subscribe hub keyed by document.
//
// Publish delivers synchronously on the caller's goroutine, in subscription
// order. Once an unsubscribe function returns, no new delivery to that
// listener starts.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string][]*subscription
	origin string
	now    func() time.Time
}

// NewBroadcaster creates a broadcaster. origin tags locally published events.
func NewBroadcaster(origin string) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string][]*subscription),
		origin: origin,
		now:    time.Now,
	}
}

// Subscribe registers listener for key.
func (b *Broadcaster) Subscribe(key string, listener Listener) (unsubscribe func()) {
	sub := &subscription{key: key, listener: listener}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs[key] = append(b.subs[key], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Broadcaster) remove(sub *subscription) {
	sub.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.key]
	for i, s := range list {
		if s == sub {
			// copy so snapshots held by in-progress publishes stay intact
			next := make([]*subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			list = next
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, sub.key)
		return
	}
	b.subs[sub.key] = list
}

// Publish notifies every current subscriber of key.
func (b *Broadcaster) Publish(key string) {
	b.Deliver(ChangeEvent{Key: key, Origin: b.origin})
}

// Deliver fans ev out exactly like a local publish. Relays use it for
// notices from other processes.
func (b *Broadcaster) Deliver(ev ChangeEvent) {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if ev.At.IsZero() {
		ev.At = b.now().UTC()
	}

	b.mu.Lock()
	list := b.subs[ev.Key]
	b.mu.Unlock()

	for _, s := range list {
		if !s.active.Load() {
			continue
		}
		s.listener(ev)
	}
}

// Keys returns the keys that currently have subscribers.
func (b *Broadcaster) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.subs))
	for k := range b.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SubscriberCount returns the number of listeners for key.
func (b *Broadcaster) SubscriberCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}
