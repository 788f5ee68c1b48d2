// Package redis relays change notices between processes over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/site-content/pkg/sitecontent"
)

// Message is the JSON published on the changes channel.
type Message struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	DocumentKey string    `json:"document_key"`
	At          time.Time `json:"at"`
}

// ChangesChannel returns the pub/sub channel for a namespace.
func ChangesChannel(namespace string) string {
	return fmt.Sprintf("sitecontent:%s:changes", namespace)
}

// Relay implements sitecontent.Relay
type Relay struct {
	rdb     redis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger
}

// New creates a relay. An empty origin gets a random one; pass the
// service origin so the service can drop its own notices.
func New(rdb redis.UniversalClient, namespace, origin string, logger *slog.Logger) *Relay {
	if origin == "" {
		origin = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		rdb:     rdb,
		channel: ChangesChannel(namespace),
		origin:  origin,
		logger:  logger,
	}
}

// Origin identifies messages published by this relay.
func (r *Relay) Origin() string {
	return r.origin
}

// Announce publishes a change to every listening process.
func (r *Relay) Announce(ctx context.Context, documentKey string) error {
	data, err := json.Marshal(Message{
		ID:          ulid.Make().String(),
		Origin:      r.origin,
		DocumentKey: documentKey,
		At:          time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", documentKey, err)
	}
	return nil
}

// Listen subscribes to the channel and hands foreign messages to deliver
// until ctx ends.
func (r *Relay) Listen(ctx context.Context, deliver func(sitecontent.Notice)) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("change channel closed")
			}

			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn("Dropping malformed change message", "channel", r.channel, "err", err)
				continue
			}
			if m.Origin == r.origin || m.DocumentKey == "" {
				continue
			}
			deliver(sitecontent.Notice{DocumentKey: m.DocumentKey, Origin: m.Origin})
		}
	}
}
