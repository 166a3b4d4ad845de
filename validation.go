package toolman

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
)

// UnknownFieldPolicy decides what happens to arguments that are not declared in a tool's schema.
// A Registry applies one policy to every tool.
type UnknownFieldPolicy int

const (
	// UnknownFieldsReject fails validation when an undeclared argument is present.
	UnknownFieldsReject UnknownFieldPolicy = iota
	// UnknownFieldsDrop silently removes undeclared arguments before validation.
	UnknownFieldsDrop
)

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and decoding.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (e.g. map[string]any from json.Unmarshal).
// *jsonschema.Resolved implements it.
type schemaValidator interface {
	Validate(v any) error
}

// Validate checks args against the schema, rejecting unknown fields, and returns a new
// Args with defaults filled in for absent optional fields. json.Number values are
// converted to int64 or float64 first. args is not mutated.
// Failures are ClientErrors wrapping ErrValidation.
func (s *Schema) Validate(args map[string]any) (Args, error) {
	return s.validate(args, UnknownFieldsReject)
}

func (s *Schema) validate(args map[string]any, policy UnknownFieldPolicy) (Args, error) {
	out := make(Args, len(s.fields))
	var unknown []string
	for name, v := range args {
		if _, ok := s.index[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		out[name] = normalizeNumber(v)
	}
	if len(unknown) > 0 && policy == UnknownFieldsReject {
		slices.Sort(unknown)
		return nil, validationError("unknown argument(s): %s", strings.Join(unknown, ", "))
	}
	if err := validateAgainstSchema(s.resolved, map[string]any(out)); err != nil {
		return nil, err
	}
	for _, f := range s.fields {
		if _, ok := out[f.Name]; !ok && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out, nil
}

// normalizeNumber converts a json.Number (from json.Decoder.UseNumber) to int64, or to
// float64 when it is not integral. Other values are returned unchanged.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return v
}

// validateAgainstSchema runs Layer 1 validation on already-parsed value v.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Layer 2 (Validatable) if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// runLayer2Validation runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runLayer2Validation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}
