package sitecontent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MigrateFunc rewrites a legacy value into the current payload shape. It
// receives the parsed JSON root, which may not be an object, and must return
// values already in the current shape unchanged.
type MigrateFunc func(value any) any

// Decode parses raw as a document payload for key and validates it against
// schema. Failures are *DecodeError values, never panics.
func Decode(raw string, key string, schema *Schema) (*Document, error) {
	return decode(raw, key, schema, nil)
}

func decode(raw string, key string, schema *Schema, migrate MigrateFunc) (*Document, error) {
	v, err := parseJSON(raw)
	if err != nil {
		return nil, &DecodeError{Key: key, Kind: MalformedJSON, Err: err}
	}
	if migrate != nil {
		v = migrate(v)
	}
	payload, ok := v.(map[string]any)
	if !ok {
		err := &SchemaError{Reason: fmt.Sprintf("payload must be a JSON object, got %s", jsonType(v))}
		return nil, &DecodeError{Key: key, Kind: SchemaMismatch, Err: err}
	}
	if err := schema.Validate(payload); err != nil {
		return nil, &DecodeError{Key: key, Kind: SchemaMismatch, Err: err}
	}
	return &Document{Key: key, Payload: payload}, nil
}

func parseJSON(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty value")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// Encode serializes the document payload. Decode(Encode(d)) yields a document
// Equal to d.
func Encode(doc *Document) (string, error) {
	if doc == nil || doc.Payload == nil {
		return "", errors.New("document has no payload")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc.Payload); err != nil {
		return "", fmt.Errorf("encode %s: %w", doc.Key, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
