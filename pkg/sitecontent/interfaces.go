package sitecontent

import "context"

// Store is a persisted string-keyed store of JSON blobs.
type Store interface {
	// Get returns the raw value, or ErrKeyNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key; removing an absent key is not an error
	Remove(ctx context.Context, key string) error
}

// Fetcher retrieves the remote static default document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Relay carries change notices between processes sharing one store.
type Relay interface {
	// Announce tells other processes that a document changed
	Announce(ctx context.Context, documentKey string) error

	// Listen blocks, passing every foreign notice to deliver, until ctx ends
	Listen(ctx context.Context, deliver func(Notice)) error
}

// ContentService is the surface presentational code and admin tooling use.
type ContentService interface {
	// Reading
	Resolve(ctx context.Context, key string) (*Document, error)
	Invalidate(key string)
	UseContent(ctx context.Context, key string, opts ...ConsumerOption) (*Consumer, error)

	// Writing
	Save(ctx context.Context, key string, payload map[string]any) (*SaveResult, error)
	Restore(ctx context.Context, keys ...string) error

	// Notification. Publish returns after every consumer of key has
	// re-resolved, so Save and Restore wait on slow tiers too.
	Subscribe(key string, listener Listener) (unsubscribe func())
	Publish(key string)

	// Registry
	Documents() []DocumentSpec
	Document(key string) (DocumentSpec, bool)

	// Run drives the relay listener and the poller until ctx ends
	Run(ctx context.Context) error
}
