package sitecontent

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrKeyNotFound indicates a store key is absent
	ErrKeyNotFound = errors.New("key not found")

	// ErrQuotaExceeded indicates a store refused a write for lack of space
	ErrQuotaExceeded = errors.New("store quota exceeded")

	// ErrMalformedJSON indicates a raw value is not valid JSON
	ErrMalformedJSON = errors.New("malformed json")

	// ErrSchemaMismatch indicates valid JSON with missing or mistyped fields
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrStoreWrite indicates a write to the store did not happen
	ErrStoreWrite = errors.New("store write failed")

	// ErrRemoteFetch indicates the remote default document could not be fetched
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrUnknownDocument indicates a document key with no registered spec
	ErrUnknownDocument = errors.New("unknown document")

	// ErrInvalidChain indicates a fallback chain that cannot terminate
	ErrInvalidChain = errors.New("invalid fallback chain")
)

// DecodeKind classifies decode failures.
type DecodeKind string

const (
	MalformedJSON  DecodeKind = "malformed_json"
	SchemaMismatch DecodeKind = "schema_mismatch"
)

// DecodeError is returned by Decode.
type DecodeError struct {
	Key  string
	Kind DecodeKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s failed (%s): %v", e.Key, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	sentinel := ErrMalformedJSON
	if e.Kind == SchemaMismatch {
		sentinel = ErrSchemaMismatch
	}
	return []error{sentinel, e.Err}
}

// SchemaError points at the offending field.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// StoreError represents an error related to store operations
type StoreError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreWriteError is the soft failure reported by Service.Save.
type StoreWriteError struct {
	Key string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("write %s failed: %v", e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() []error {
	return []error{ErrStoreWrite, e.Err}
}

// RemoteFetchError covers network failures, timeouts and non-2xx responses.
type RemoteFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *RemoteFetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteFetch}
	}
	return []error{ErrRemoteFetch, e.Err}
}
