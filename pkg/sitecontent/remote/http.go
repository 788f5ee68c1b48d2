// Package remote fetches the static default documents a site publishes
// next to its assets.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tendant/site-content/pkg/sitecontent"
)

// MaxBodySize caps a remote document body.
const MaxBodySize = 1 << 20

// HTTPFetcher implements sitecontent.Fetcher over HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client uses http.DefaultClient;
// the resolver applies its own deadline through the request context.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch returns the body of url when the response is 2xx.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &sitecontent.RemoteFetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &sitecontent.RemoteFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil, &sitecontent.RemoteFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &sitecontent.RemoteFetchError{URL: url, Err: err}
	}
	if len(body) > MaxBodySize {
		return nil, &sitecontent.RemoteFetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", MaxBodySize)}
	}
	return body, nil
}
