package toolman

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the primitive JSON Schema type of a parameter.
type Kind string

// Supported kinds. Schemas are flat: objects and arrays are not parameter kinds.
const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

func (k Kind) valid() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean:
		return true
	}
	return false
}

// Field is one named parameter of a Schema.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Default     any // nil when the field has no default
	Description string
	Enum        []any
}

// FieldOption configures a Field built with String, Integer, Number or Boolean.
type FieldOption func(*Field)

// Optional marks the field as not required, without a default.
func Optional() FieldOption {
	return func(f *Field) {
		f.Required = false
	}
}

// WithDefault makes the field optional and fills v when the argument is absent.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.Required = false
		f.Default = v
	}
}

// WithDescription sets the field description shown to the model.
func WithDescription(s string) FieldOption {
	return func(f *Field) {
		f.Description = s
	}
}

// WithEnum restricts the field to the given values.
func WithEnum(values ...any) FieldOption {
	return func(f *Field) {
		f.Enum = values
	}
}

func newField(name string, kind Kind, opts []FieldOption) Field {
	f := Field{Name: name, Kind: kind, Required: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// String declares a required string field (see FieldOption for variations).
func String(name string, opts ...FieldOption) Field { return newField(name, KindString, opts) }

// Integer declares a required integer field.
func Integer(name string, opts ...FieldOption) Field { return newField(name, KindInteger, opts) }

// Number declares a required floating-point field.
func Number(name string, opts ...FieldOption) Field { return newField(name, KindNumber, opts) }

// Boolean declares a required boolean field.
func Boolean(name string, opts ...FieldOption) Field { return newField(name, KindBoolean, opts) }

// Schema is an ordered, flat set of typed parameters. It is immutable once built.
type Schema struct {
	fields   []Field
	index    map[string]int
	resolved *jsonschema.Resolved
}

// NewSchema validates fields and compiles them into a Schema. Field order is kept.
// It fails on empty or duplicate names, unknown kinds, required fields with a default,
// and defaults or enum values that do not match the field kind.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		f, err := normalizeField(f)
		if err != nil {
			return nil, err
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	resolved, err := compileRawSchema(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	s.resolved = resolved
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level schemas.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func normalizeField(f Field) (Field, error) {
	if f.Name == "" {
		return f, fmt.Errorf("%w: field name must not be empty", ErrInvalidSchema)
	}
	if !f.Kind.valid() {
		return f, fmt.Errorf("%w: field %q has unsupported type %q", ErrInvalidSchema, f.Name, f.Kind)
	}
	if f.Required && f.Default != nil {
		return f, fmt.Errorf("%w: required field %q must not have a default", ErrInvalidSchema, f.Name)
	}
	if f.Default != nil {
		v, err := normalizeValue(f.Kind, f.Default)
		if err != nil {
			return f, fmt.Errorf("%w: default of field %q: %w", ErrInvalidSchema, f.Name, err)
		}
		f.Default = v
	}
	if len(f.Enum) > 0 {
		enum := make([]any, len(f.Enum))
		for i, e := range f.Enum {
			v, err := normalizeValue(f.Kind, e)
			if err != nil {
				return f, fmt.Errorf("%w: enum of field %q: %w", ErrInvalidSchema, f.Name, err)
			}
			enum[i] = v
		}
		f.Enum = enum
	}
	return f, nil
}

// normalizeValue checks that v conforms to kind and converts numbers to int64/float64.
func normalizeValue(kind Kind, v any) (any, error) {
	if !conforms(kind, v) {
		return nil, fmt.Errorf("value %v (%T) is not of type %s", v, v, kind)
	}
	switch kind {
	case KindInteger:
		return cast.ToInt64E(v)
	case KindNumber:
		return cast.ToFloat64E(v)
	}
	return v, nil
}

// conforms reports whether v is a valid instance of kind without coercion.
// Integral floats (as produced by encoding/json) count as integers.
func conforms(kind Kind, v any) bool {
	if n, ok := v.(json.Number); ok {
		switch kind {
		case KindInteger:
			_, err := n.Int64()
			return err == nil
		case KindNumber:
			_, err := n.Float64()
			return err == nil
		}
		return false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch kind {
	case KindString:
		return rv.Kind() == reflect.String
	case KindBoolean:
		return rv.Kind() == reflect.Bool
	case KindInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return !math.IsInf(f, 0) && f == math.Trunc(f)
		}
	case KindNumber:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			return !math.IsNaN(rv.Float()) && !math.IsInf(rv.Float(), 0)
		}
	}
	return false
}

// Fields returns a copy of the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i, f := range s.fields {
		f.Enum = slices.Clone(f.Enum)
		out[i] = f
	}
	return out
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	f := s.fields[i]
	f.Enum = slices.Clone(f.Enum)
	return f, true
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Required returns the names of required fields in declaration order.
func (s *Schema) Required() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// JSONSchema returns a fresh JSON Schema object for the parameters:
// {"type":"object","properties":{...},"required":[...]}. Each call builds a new value,
// so callers may mutate it.
//
// The "properties" value is an *orderedmap.OrderedMap[string, any] so that declaration
// order survives json.Marshal; a type assertion to map[string]any fails. Each property
// inside it is a map[string]any.
func (s *Schema) JSONSchema() map[string]any {
	props := orderedmap.New[string, any]()
	for _, f := range s.fields {
		prop := map[string]any{"type": string(f.Kind)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			prop["enum"] = slices.Clone(f.Enum)
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		props.Set(f.Name, prop)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   s.Required(),
	}
}

// compileRawSchema compiles a raw JSON Schema map into a resolved validator. The map is not mutated.
func compileRawSchema(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}
