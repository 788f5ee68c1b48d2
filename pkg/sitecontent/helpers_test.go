package sitecontent

import (
	"context"
	"sync"
	"sync/atomic"
)

// mapStore is an in-package Store; the real backends import this package.
type mapStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr map[string]error
	setErr error
	getCnt atomic.Int64
}

func newMapStore(entries map[string]string) *mapStore {
	s := &mapStore{data: map[string]string{}, getErr: map[string]error{}}
	for k, v := range entries {
		s.data[k] = v
	}
	return s
}

func (s *mapStore) Get(ctx context.Context, key string) (string, error) {
	s.getCnt.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[key]; err != nil {
		return "", err
	}
	v, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (s *mapStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *mapStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

var linksSchema = &Schema{Fields: []Field{
	{Name: "snsLinks", Kind: KindStringMap, Required: true},
}}

func linksDefault() map[string]any {
	return map[string]any{"snsLinks": map[string]any{"youtube": "", "instagram": ""}}
}

// linksSpec mirrors the footer links document: primary, legacy, optional
// remote, compiled default.
func linksSpec(remoteURL string) DocumentSpec {
	return DocumentSpec{
		Key:    "footer.snsLinks",
		Schema: linksSchema,
		Chain:  StandardChain("siteContent:footer.snsLinks", "snsLinks", remoteURL, nil, linksDefault()),
	}
}

func aboutSpec() DocumentSpec {
	return DocumentSpec{
		Key: "about",
		Schema: &Schema{Fields: []Field{
			{Name: "headline", Kind: KindString, Required: true},
		}},
		Chain: StandardChain("siteContent:about", "aboutContent", "", nil, map[string]any{"headline": "About"}),
	}
}
