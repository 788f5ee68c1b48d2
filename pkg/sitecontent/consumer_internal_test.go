package sitecontent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedResolve returns queued results in order, blocking on gate when set.
type scriptedResolve struct {
	mu      sync.Mutex
	results []func() (*Document, error)
}

func (s *scriptedResolve) push(fn func() (*Document, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, fn)
}

func (s *scriptedResolve) resolve(ctx context.Context, key string) (*Document, error) {
	s.mu.Lock()
	fn := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	s.mu.Unlock()
	return fn()
}

func docWith(headline string, tier SourceTier) *Document {
	return &Document{Key: "about", Payload: map[string]any{"headline": headline}, SourceTier: tier}
}

func TestConsumerErrorKeepsLastData(t *testing.T) {
	script := &scriptedResolve{}
	script.push(func() (*Document, error) { return docWith("a", SourcePrimaryStore), nil })
	script.push(func() (*Document, error) { return nil, errors.New("boom") })

	b := NewBroadcaster("")
	c := newConsumer(context.Background(), "about", script.resolve, nil, b)
	defer c.Close()
	<-c.Loaded()
	require.Equal(t, StatusReady, c.State().Status)

	b.Publish("about")
	st := c.State()
	assert.Equal(t, StatusError, st.Status)
	assert.EqualError(t, st.Err, "boom")
	assert.Equal(t, "a", st.Data.Payload["headline"])
}

func TestConsumerDiscardsStaleResult(t *testing.T) {
	gate := make(chan struct{})
	script := &scriptedResolve{}
	// the initial load is slow and returns old content
	script.push(func() (*Document, error) {
		<-gate
		return docWith("old", SourceCompiledDefault), nil
	})
	script.push(func() (*Document, error) { return docWith("new", SourcePrimaryStore), nil })

	var changes atomic.Int32
	b := NewBroadcaster("")
	c := newConsumer(context.Background(), "about", script.resolve, nil, b, WithOnChange(func(State) { changes.Add(1) }))
	defer c.Close()

	// wait until the initial load has taken its script entry
	require.Eventually(t, func() bool {
		script.mu.Lock()
		defer script.mu.Unlock()
		return len(script.results) == 1
	}, time.Second, time.Millisecond)

	b.Publish("about")
	assert.Equal(t, "new", c.State().Data.Payload["headline"])

	close(gate)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "new", c.State().Data.Payload["headline"])
	assert.Equal(t, int32(1), changes.Load())
}

func TestConsumerTierChangeIsAChange(t *testing.T) {
	script := &scriptedResolve{}
	script.push(func() (*Document, error) { return docWith("same", SourceCompiledDefault), nil })
	script.push(func() (*Document, error) { return docWith("same", SourcePrimaryStore), nil })

	var calls int
	b := NewBroadcaster("")
	c := newConsumer(context.Background(), "about", script.resolve, nil, b, WithOnChange(func(State) { calls++ }))
	defer c.Close()
	<-c.Loaded()

	b.Publish("about")
	assert.Equal(t, 2, calls)
	assert.Equal(t, SourcePrimaryStore, c.State().Data.SourceTier)
}

func TestConsumerNotifiesInApplyOrder(t *testing.T) {
	script := &scriptedResolve{}
	script.push(func() (*Document, error) { return docWith("A", SourceCompiledDefault), nil })
	script.push(func() (*Document, error) { return docWith("B", SourcePrimaryStore), nil })

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string

	listener := func(st State) {
		headline := st.Data.Payload["headline"].(string)
		if headline == "A" {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, headline)
		mu.Unlock()
	}

	b := NewBroadcaster("")
	c := newConsumer(context.Background(), "about", script.resolve, nil, b, WithOnChange(listener))
	defer c.Close()

	// the listener is holding state A
	<-entered

	published := make(chan struct{})
	go func() {
		defer close(published)
		b.Publish("about")
	}()

	require.Eventually(t, func() bool {
		return c.State().Data.Payload["headline"] == "B"
	}, time.Second, time.Millisecond)

	close(release)
	<-published

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, "B", seen[len(seen)-1])
	assert.Equal(t, "B", c.State().Data.Payload["headline"])
}
