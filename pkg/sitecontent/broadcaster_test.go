package sitecontent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBroadcasterDeliversInSubscriptionOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroadcaster("tab-1")
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe("home", func(ChangeEvent) { got = append(got, i) })
	}

	b.Publish("home")
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestBroadcasterDeliversOncePerPublish(t *testing.T) {
	b := NewBroadcaster("tab-1")
	count := 0
	var last ChangeEvent
	b.Subscribe("about", func(ev ChangeEvent) {
		count++
		last = ev
	})
	b.Subscribe("home", func(ChangeEvent) { t.Fatal("wrong key delivered") })

	for i := 0; i < 3; i++ {
		b.Publish("about")
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, "about", last.Key)
	assert.Equal(t, "tab-1", last.Origin)
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.At.IsZero())
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster("")
	var a, c int
	unsubA := b.Subscribe("home", func(ChangeEvent) { a++ })
	unsubC := b.Subscribe("home", func(ChangeEvent) { c++ })
	assert.Equal(t, 2, b.SubscriberCount("home"))

	b.Publish("home")
	unsubA()
	unsubA() // idempotent
	b.Publish("home")

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1, b.SubscriberCount("home"))

	unsubC()
	assert.Equal(t, 0, b.SubscriberCount("home"))
	assert.Empty(t, b.Keys())
}

func TestBroadcasterUnsubscribeDuringDelivery(t *testing.T) {
	b := NewBroadcaster("")
	var second int
	var unsubSecond func()
	b.Subscribe("home", func(ChangeEvent) { unsubSecond() })
	unsubSecond = b.Subscribe("home", func(ChangeEvent) { second++ })

	b.Publish("home")
	assert.Equal(t, 0, second, "listener removed mid-publish must not be called")
}

func TestBroadcasterSubscribeDuringDelivery(t *testing.T) {
	b := NewBroadcaster("")
	var late int
	b.Subscribe("home", func(ChangeEvent) {
		b.Subscribe("home", func(ChangeEvent) { late++ })
	})

	b.Publish("home")
	assert.Equal(t, 0, late, "listener added mid-publish waits for the next publish")
	b.Publish("home")
	assert.Equal(t, 1, late)
}

func TestBroadcasterNoLeakAcrossCycles(t *testing.T) {
	b := NewBroadcaster("")
	for i := 0; i < 1000; i++ {
		unsub := b.Subscribe("footer.company", func(ChangeEvent) {})
		unsub()
	}
	assert.Equal(t, 0, b.SubscriberCount("footer.company"))
	assert.Empty(t, b.Keys())
}

func TestBroadcasterDeliverKeepsForeignEvent(t *testing.T) {
	b := NewBroadcaster("tab-1")
	var got ChangeEvent
	b.Subscribe("home", func(ev ChangeEvent) { got = ev })

	b.Deliver(ChangeEvent{ID: "01J", Key: "home", Origin: "tab-2"})
	assert.Equal(t, "01J", got.ID)
	assert.Equal(t, "tab-2", got.Origin)
	assert.False(t, got.At.IsZero())
}

func TestBroadcasterConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroadcaster("")
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := b.Subscribe("home", func(ChangeEvent) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			b.Publish("home")
			unsub()
		}()
	}
	wg.Wait()

	require.Equal(t, 0, b.SubscriberCount("home"))
	assert.GreaterOrEqual(t, total, 16)
}
