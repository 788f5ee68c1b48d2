package sitecontent

import "context"

// NoopRelay is used when no cross-process channel is configured. Announce does
// nothing and Listen waits for ctx.
type NoopRelay struct{}

// NewNoopRelay creates a new no-operation relay
func NewNoopRelay() Relay {
	return NoopRelay{}
}

// Announce does nothing and returns nil
func (NoopRelay) Announce(ctx context.Context, documentKey string) error {
	return nil
}

// Listen blocks until ctx is done
func (NoopRelay) Listen(ctx context.Context, deliver func(Notice)) error {
	<-ctx.Done()
	return nil
}
