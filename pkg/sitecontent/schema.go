package sitecontent

import (
	"fmt"
	"strconv"
)

// Kind is the JSON type a field must carry.
type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBool      Kind = "bool"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindStringMap Kind = "string_map"
	KindAny       Kind = "any"
)

// Field describes one member of an object.
//
// Fields applies to objects and to array elements when Elem is KindObject.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Elem     Kind
	Fields   []Field
}

// Schema is the shape a document payload must satisfy. Unknown members are
// allowed; required members must be present and non-null.
type Schema struct {
	Fields []Field
}

// Validate checks payload against the schema. The returned error is a
// *SchemaError.
func (s *Schema) Validate(payload map[string]any) error {
	if payload == nil {
		return &SchemaError{Reason: "payload must be a JSON object"}
	}
	if s == nil {
		return nil
	}
	return validateFields(s.Fields, payload, "")
}

func validateFields(fields []Field, obj map[string]any, prefix string) error {
	for _, f := range fields {
		path := joinPath(prefix, f.Name)
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				return &SchemaError{Path: path, Reason: "required field missing"}
			}
			continue
		}
		if err := validateValue(f.Kind, f.Elem, f.Fields, v, path); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(kind, elem Kind, fields []Field, v any, path string) error {
	switch kind {
	case KindAny, "":
		return nil
	case KindString:
		if _, ok := v.(string); !ok {
			return typeError(path, kind, v)
		}
	case KindNumber:
		if _, ok := v.(float64); !ok {
			return typeError(path, kind, v)
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return typeError(path, kind, v)
		}
	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeError(path, kind, v)
		}
		return validateFields(fields, obj, path)
	case KindStringMap:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeError(path, kind, v)
		}
		for k, e := range obj {
			if _, ok := e.(string); !ok {
				return typeError(joinPath(path, k), KindString, e)
			}
		}
	case KindArray:
		arr, ok := v.([]any)
		if !ok {
			return typeError(path, kind, v)
		}
		for i, e := range arr {
			if err := validateValue(elem, "", fields, e, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	default:
		return &SchemaError{Path: path, Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	return nil
}

func typeError(path string, want Kind, got any) error {
	return &SchemaError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, jsonType(got))}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
