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

func newTestResolver(t *testing.T, store Store, fetcher Fetcher, specs ...DocumentSpec) *Resolver {
	t.Helper()
	reg, err := NewRegistry(specs...)
	require.NoError(t, err)
	return NewResolver(reg, store, fetcher, nil)
}

func TestResolveFallbackOrder(t *testing.T) {
	ctx := context.Background()
	remote := fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`{"snsLinks":{"youtube":"https://remote"}}`), nil
	})

	tests := []struct {
		name    string
		entries map[string]string
		fetcher Fetcher
		tier    SourceTier
		youtube string
	}{
		{
			name: "primary wins",
			entries: map[string]string{
				"siteContent:footer.snsLinks": `{"snsLinks":{"youtube":"https://primary"}}`,
				"snsLinks":                    `{"snsLinks":{"youtube":"https://legacy"}}`,
			},
			fetcher: remote,
			tier:    SourcePrimaryStore,
			youtube: "https://primary",
		},
		{
			name:    "legacy when primary absent",
			entries: map[string]string{"snsLinks": `{"snsLinks":{"youtube":"https://legacy"}}`},
			fetcher: remote,
			tier:    SourceLegacyStore,
			youtube: "https://legacy",
		},
		{
			name: "corrupted primary falls through",
			entries: map[string]string{
				"siteContent:footer.snsLinks": "{not json",
				"snsLinks":                    `{"snsLinks":{"youtube":"https://legacy"}}`,
			},
			fetcher: remote,
			tier:    SourceLegacyStore,
			youtube: "https://legacy",
		},
		{
			name: "empty primary value falls through",
			entries: map[string]string{
				"siteContent:footer.snsLinks": "",
			},
			fetcher: remote,
			tier:    SourceRemoteDefault,
			youtube: "https://remote",
		},
		{
			name:    "remote when store empty",
			fetcher: remote,
			tier:    SourceRemoteDefault,
			youtube: "https://remote",
		},
		{
			name: "compiled default when remote fails",
			fetcher: fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
				return nil, &RemoteFetchError{URL: url, StatusCode: 404}
			}),
			tier:    SourceCompiledDefault,
			youtube: "",
		},
		{
			name: "compiled default when remote body is invalid",
			fetcher: fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
				return []byte(`<html>`), nil
			}),
			tier:    SourceCompiledDefault,
			youtube: "",
		},
		{
			name: "explicit empty string in store terminates the chain",
			entries: map[string]string{
				"siteContent:footer.snsLinks": `{"snsLinks":{"youtube":""}}`,
			},
			fetcher: remote,
			tier:    SourcePrimaryStore,
			youtube: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, newMapStore(tt.entries), tt.fetcher, linksSpec("https://cdn.example/footer.snsLinks.json"))

			doc, err := r.Resolve(ctx, "footer.snsLinks")
			require.NoError(t, err)
			assert.Equal(t, tt.tier, doc.SourceTier)
			assert.Equal(t, "footer.snsLinks", doc.Key)
			assert.Equal(t, tt.youtube, doc.Payload["snsLinks"].(map[string]any)["youtube"])
			assert.False(t, doc.LoadedAt.IsZero())
		})
	}
}

func TestResolveLegacyScenario(t *testing.T) {
	store := newMapStore(map[string]string{"snsLinks": `{"snsLinks":{"instagram":"https://x"}}`})
	r := newTestResolver(t, store, nil, linksSpec(""))

	doc, err := r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, SourceLegacyStore, doc.SourceTier)
	assert.Equal(t, map[string]any{"snsLinks": map[string]any{"instagram": "https://x"}}, doc.Payload)
}

func TestResolveStoreErrorsFallThrough(t *testing.T) {
	store := newMapStore(map[string]string{"aboutContent": `{"headline":"legacy"}`})
	store.getErr["siteContent:about"] = errors.New("disk on fire")
	r := newTestResolver(t, store, nil, aboutSpec())

	doc, err := r.Resolve(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, SourceLegacyStore, doc.SourceTier)
}

func TestResolveDefaultIsACopy(t *testing.T) {
	r := newTestResolver(t, newMapStore(nil), nil, aboutSpec())

	a, err := r.Resolve(context.Background(), "about")
	require.NoError(t, err)
	a.Payload["headline"] = "mutated"

	b, err := r.Resolve(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, "About", b.Payload["headline"])
	assert.Equal(t, SourceCompiledDefault, b.SourceTier)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMapStore(map[string]string{"siteContent:about": `{"headline":"x","extra":[1,2]}`})
	r := newTestResolver(t, store, nil, aboutSpec())

	a, err := r.Resolve(context.Background(), "about")
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), "about")
	require.NoError(t, err)
	assert.True(t, sameResolution(a, b))
}

func TestResolveReadsStoreFresh(t *testing.T) {
	ctx := context.Background()
	store := newMapStore(nil)
	r := newTestResolver(t, store, nil, aboutSpec())

	doc, err := r.Resolve(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, SourceCompiledDefault, doc.SourceTier)

	require.NoError(t, store.Set(ctx, "siteContent:about", `{"headline":"new"}`))
	doc, err = r.Resolve(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, SourcePrimaryStore, doc.SourceTier)
	assert.Equal(t, "new", doc.Payload["headline"])
}

func TestResolveUnknownKey(t *testing.T) {
	r := newTestResolver(t, newMapStore(nil), nil, aboutSpec())
	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestResolveChainRejectsInvalidChain(t *testing.T) {
	r := newTestResolver(t, newMapStore(nil), nil)
	_, err := r.ResolveChain(context.Background(), "x", nil, FallbackChain{{Source: SourcePrimaryStore, StoreKey: "x"}})
	assert.ErrorIs(t, err, ErrInvalidChain)
}

func TestRemoteFetchIsSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`{"snsLinks":{"youtube":"https://remote"}}`), nil
	})
	r := newTestResolver(t, newMapStore(nil), fetcher, linksSpec("https://cdn.example/links.json"))

	const n = 8
	var wg sync.WaitGroup
	docs := make([]*Document, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := r.Resolve(context.Background(), "footer.snsLinks")
			assert.NoError(t, err)
			docs[i] = doc
		}(i)
	}

	// let every caller join the flight before releasing it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, d := range docs {
		assert.Equal(t, SourceRemoteDefault, d.SourceTier)
	}

	// cached until invalidated
	_, err := r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	r.Invalidate("footer.snsLinks")
	_, err = r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteTimeoutFallsThrough(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := newTestResolver(t, newMapStore(nil), fetcher, linksSpec("https://cdn.example/links.json"))
	r.remoteTimeout = 30 * time.Millisecond

	start := time.Now()
	doc, err := r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, SourceCompiledDefault, doc.SourceTier)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRemoteFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return []byte(`{"snsLinks":{}}`), nil
	})
	r := newTestResolver(t, newMapStore(nil), fetcher, linksSpec("https://cdn.example/links.json"))

	doc, err := r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, SourceCompiledDefault, doc.SourceTier)

	doc, err = r.Resolve(context.Background(), "footer.snsLinks")
	require.NoError(t, err)
	assert.Equal(t, SourceRemoteDefault, doc.SourceTier)
}

func TestRemoteCallerCancelDoesNotPoisonFlight(t *testing.T) {
	release := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		select {
		case <-release:
			return []byte(`{"snsLinks":{"youtube":"https://remote"}}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	r := newTestResolver(t, newMapStore(nil), fetcher, linksSpec("https://cdn.example/links.json"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Document)
	go func() {
		doc, _ := r.Resolve(ctx, "footer.snsLinks")
		done <- doc
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.Equal(t, SourceCompiledDefault, (<-done).SourceTier)

	close(release)
	assert.Eventually(t, func() bool {
		doc, err := r.Resolve(context.Background(), "footer.snsLinks")
		return err == nil && doc.SourceTier == SourceRemoteDefault
	}, time.Second, 10*time.Millisecond)
}
