package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/site-content/pkg/sitecontent"
)

type noticeSink struct {
	mu      sync.Mutex
	notices []sitecontent.Notice
}

func (s *noticeSink) deliver(n sitecontent.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

func (s *noticeSink) all() []sitecontent.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sitecontent.Notice(nil), s.notices...)
}

func TestRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	listener := New(rdb, "test", "tab-a", nil)
	writer := New(rdb, "test", "tab-b", nil)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &noticeSink{}
	done := make(chan error, 1)
	go func() { done <- listener.Listen(ctx, sink.deliver) }()

	channel := ChangesChannel("test")
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// own messages are ignored
	require.NoError(t, listener.Announce(ctx, "about"))
	require.NoError(t, writer.Announce(ctx, "footer.snsLinks"))
	require.NoError(t, rdb.Publish(ctx, channel, "not json").Err())
	require.NoError(t, writer.Announce(ctx, "home"))

	require.Eventually(t, func() bool {
		return len(sink.all()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	got := sink.all()
	assert.Equal(t, "footer.snsLinks", got[0].DocumentKey)
	assert.Equal(t, "tab-b", got[0].Origin)
	assert.Equal(t, "home", got[1].DocumentKey)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestNewDefaultsOrigin(t *testing.T) {
	r := New(nil, "ns", "", nil)
	assert.NotEmpty(t, r.Origin())
	assert.Equal(t, "sitecontent:ns:changes", r.channel)
}
