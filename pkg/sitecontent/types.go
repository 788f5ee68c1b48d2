package sitecontent

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// SourceTier records which tier of the fallback chain produced a document.
type SourceTier string

// Source tier constants, in fallback order.
const (
	SourcePrimaryStore    SourceTier = "primary_store"
	SourceLegacyStore     SourceTier = "legacy_store"
	SourceRemoteDefault   SourceTier = "remote_default"
	SourceCompiledDefault SourceTier = "compiled_default"
)

// IsStore reports whether the tier reads from the keyed store.
func (t SourceTier) IsStore() bool {
	return t == SourcePrimaryStore || t == SourceLegacyStore
}

// IsValid reports whether t is one of the known tiers.
func (t SourceTier) IsValid() bool {
	switch t {
	case SourcePrimaryStore, SourceLegacyStore, SourceRemoteDefault, SourceCompiledDefault:
		return true
	}
	return false
}

// Document is one resolved unit of page content.
//
// Payload holds JSON-native values only: map[string]any, []any, string,
// float64, bool and nil. Key and Payload are the content; SourceTier and
// LoadedAt describe where and when it was resolved.
type Document struct {
	Key        string         `json:"key"`
	Payload    map[string]any `json:"payload"`
	SourceTier SourceTier     `json:"source_tier,omitempty"`
	LoadedAt   time.Time      `json:"loaded_at,omitempty"`
}

// Equal reports whether both documents carry the same key and payload.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Key == other.Key && cmp.Equal(d.Payload, other.Payload)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Payload = clonePayload(d.Payload)
	return &c
}

// sameResolution is the consumer's notion of "nothing changed": same content
// from the same tier.
func sameResolution(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.SourceTier == b.SourceTier && a.Equal(b)
}

func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clonePayload(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ChangeEvent is delivered to subscribers when a document may have changed.
type ChangeEvent struct {
	ID     string    `json:"id"`
	Key    string    `json:"key"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Status is the lifecycle state of a consumer.
type Status string

// Consumer status constants.
const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// State is what a consumer exposes to presentational code.
type State struct {
	Status Status
	Data   *Document
	Err    error
}

// SaveResult describes the outcome of a write.
type SaveResult struct {
	Key       string    `json:"key"`
	StoreKey  string    `json:"store_key"`
	Persisted bool      `json:"persisted"`
	Warning   string    `json:"warning,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Notice is a change observed outside this process. Exactly one of
// DocumentKey or StoreKey is normally set.
type Notice struct {
	DocumentKey string
	StoreKey    string
	Origin      string
}
