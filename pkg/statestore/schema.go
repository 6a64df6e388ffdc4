package statestore

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldType declares how a schema field is encoded to and decoded from the
// Redis hash. Redis stores every value as a string; the declared type is
// what makes decoding unambiguous.
type FieldType string

const (
	// FieldString stores the value verbatim.
	FieldString FieldType = "string"

	// FieldInt stores a base-10 integer.
	FieldInt FieldType = "int"

	// FieldBool stores "true" or "false".
	FieldBool FieldType = "bool"

	// FieldJSON stores an arbitrary structure as a JSON document.
	FieldJSON FieldType = "json"
)

// Validate checks if the FieldType is a valid enum value.
func (ft FieldType) Validate() error {
	switch ft {
	case FieldString, FieldInt, FieldBool, FieldJSON:
		return nil
	default:
		return fmt.Errorf("unknown field type: %q", ft)
	}
}

// FieldSpec describes a single field of a schema.
type FieldSpec struct {
	Type     FieldType
	Required bool
}

// Schema is a named field-validation contract bound to a logical record
// type. Records are checked against it before every write.
type Schema struct {
	name   string
	fields map[string]FieldSpec
}

// NewSchema creates a schema with the given name and field declarations.
// Returns an error if the name is empty or any field declares an unknown
// type.
func NewSchema(name string, fields map[string]FieldSpec) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}

	for field, spec := range fields {
		if err := spec.Type.Validate(); err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
	}

	return &Schema{name: name, fields: fields}, nil
}

// Name returns the schema name used in physical keys.
func (s *Schema) Name() string {
	return s.name
}

// Validate checks a record against the schema. Every field must be
// declared, hold a value encodable as its declared type, and every
// required field must be present. Returns a *ValidationError describing
// the first violation found.
func (s *Schema) Validate(rec Record) error {
	for field, value := range rec {
		spec, ok := s.fields[field]
		if !ok {
			return &ValidationError{Schema: s.name, Field: field, Reason: "field not declared in schema"}
		}
		if _, err := encodeField(spec.Type, value); err != nil {
			return &ValidationError{Schema: s.name, Field: field, Reason: err.Error()}
		}
	}

	for field, spec := range s.fields {
		if !spec.Required {
			continue
		}
		if _, ok := rec[field]; !ok {
			return &ValidationError{Schema: s.name, Field: field, Reason: "required field missing"}
		}
	}

	return nil
}

// encodeField converts a Go value to its Redis string representation
// according to the declared field type.
func encodeField(ft FieldType, value any) (string, error) {
	switch ft {
	case FieldString:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", value)
		}
		return str, nil

	case FieldInt:
		switch v := value.(type) {
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		default:
			return "", fmt.Errorf("expected int, got %T", value)
		}

	case FieldBool:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", value)
		}
		return strconv.FormatBool(b), nil

	case FieldJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("not JSON-encodable: %w", err)
		}
		return string(data), nil

	default:
		return "", fmt.Errorf("unknown field type: %q", ft)
	}
}

// decodeField converts a Redis string back to a Go value according to the
// declared field type. Fields not declared in the schema decode as raw
// strings.
func (s *Schema) decodeField(field, raw string) (any, error) {
	spec, ok := s.fields[field]
	if !ok {
		return raw, nil
	}

	switch spec.Type {
	case FieldString:
		return raw, nil

	case FieldInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int field %q: %w", field, err)
		}
		return n, nil

	case FieldBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bool field %q: %w", field, err)
		}
		return b, nil

	case FieldJSON:
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid JSON field %q: %w", field, err)
		}
		return value, nil

	default:
		return raw, nil
	}
}
