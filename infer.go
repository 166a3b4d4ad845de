package toolman

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[reflect.Type]Kind)
)

// RegisterType maps a custom Go type to a parameter kind for schema inference
// (e.g. RegisterType(time.Duration(0), KindString) so "5s" is accepted).
// emptyInstance is a value of the type to register; it must not be nil. kind must be valid.
// Pointer fields (*T) use the same mapping as T. Values of registered string types are
// decoded with encoding.TextUnmarshaler when the type implements it.
// Call RegisterType at application startup before the first NewTool or InferSchema.
func RegisterType(emptyInstance any, kind Kind) {
	if emptyInstance == nil {
		panic("toolman: RegisterType emptyInstance must not be nil")
	}
	if !kind.valid() {
		panic("toolman: RegisterType kind must be string, integer, number or boolean")
	}
	t := reflect.TypeOf(emptyInstance)
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[t] = kind
}

// buildTypeSchemas returns the registered types as jsonschema.ForOptions.TypeSchemas.
func buildTypeSchemas() map[reflect.Type]*jsonschema.Schema {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	out := make(map[reflect.Type]*jsonschema.Schema, len(customTypes))
	for t, k := range customTypes {
		out[t] = &jsonschema.Schema{Type: string(k)}
	}
	return out
}

// InferSchema derives a Schema from the exported fields of struct type T, in declaration order.
//
// Types are mapped by jsonschema.For (plus the types added with RegisterType): strings → string,
// integers → integer, floats → number, bool → boolean. The parameter name is the json tag name
// (the Go field name when untagged; "-" skips the field). A field is required unless it is a
// pointer, is tagged omitempty/omitzero, or has a default tag. The description and enum
// (comma separated) tags are copied into the schema.
//
// Any field without a concrete primitive type (any, interfaces, structs, slices, maps)
// fails with *SchemaInferenceError; inference never guesses.
func InferSchema[T any]() (*Schema, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, &SchemaInferenceError{Type: typ, Reason: "argument type must be a struct"}
	}
	// Embedded and double pointer fields are rejected before generation: jsonschema.For
	// would flatten or unwrap them.
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if sf.Anonymous {
			return nil, &SchemaInferenceError{Type: typ, Field: sf.Name, Reason: "embedded fields are not supported"}
		}
		if sf.Type.Kind() == reflect.Pointer && sf.Type.Elem().Kind() == reflect.Pointer {
			return nil, &SchemaInferenceError{Type: typ, Field: sf.Name, Reason: fmt.Sprintf("unsupported type %v", sf.Type)}
		}
	}
	generated, err := jsonschema.For[T](&jsonschema.ForOptions{TypeSchemas: buildTypeSchemas()})
	if err != nil {
		return nil, &SchemaInferenceError{Type: typ, Reason: err.Error()}
	}
	return schemaFromGenerated(typ, generated)
}

// schemaFromGenerated flattens the root properties of a generated schema into Fields,
// enriched from the struct tags of typ.
func schemaFromGenerated(typ reflect.Type, generated *jsonschema.Schema) (*Schema, error) {
	fields := make([]Field, 0, typ.NumField())
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, omit, skip := jsonFieldName(sf)
		if skip {
			continue
		}
		prop := generated.Properties[name]
		if prop == nil {
			return nil, &SchemaInferenceError{Type: typ, Field: sf.Name, Reason: "no schema generated for field"}
		}
		kind, err := propertyKind(prop, sf.Type)
		if err != nil {
			return nil, &SchemaInferenceError{Type: typ, Field: sf.Name, Reason: err.Error()}
		}
		f := Field{
			Name:        name,
			Kind:        kind,
			Required:    !omit && sf.Type.Kind() != reflect.Pointer && slices.Contains(generated.Required, name),
			Description: prop.Description,
		}
		if err := enrichFromTags(&f, sf); err != nil {
			return nil, &SchemaInferenceError{Type: typ, Field: sf.Name, Reason: err.Error()}
		}
		fields = append(fields, f)
	}
	s, err := NewSchema(fields...)
	if err != nil {
		return nil, &SchemaInferenceError{Type: typ, Reason: err.Error()}
	}
	return s, nil
}

// propertyKind reads the primitive type of a generated property. Nullable pointers
// come out as ["null", T].
func propertyKind(prop *jsonschema.Schema, goType reflect.Type) (Kind, error) {
	typ := prop.Type
	if typ == "" {
		for _, t := range prop.Types {
			if t == "null" {
				continue
			}
			if typ != "" {
				return "", fmt.Errorf("parameter has more than one type (%v)", goType)
			}
			typ = t
		}
	}
	switch Kind(typ) {
	case KindString, KindInteger, KindNumber, KindBoolean:
		return Kind(typ), nil
	case "":
		return "", fmt.Errorf("parameter has no declared type (%v)", goType)
	}
	return "", fmt.Errorf("unsupported type %v (%s): only string, integer, number and boolean parameters are supported", goType, typ)
}

// enrichFromTags applies the description, default and enum struct tags to f.
// A default makes the field optional.
func enrichFromTags(f *Field, sf reflect.StructField) error {
	if desc := sf.Tag.Get("description"); desc != "" {
		f.Description = desc
	}
	if def, ok := sf.Tag.Lookup("default"); ok {
		v, err := parseTagValue(f.Kind, def)
		if err != nil {
			return fmt.Errorf("bad default tag: %w", err)
		}
		f.Default = v
		f.Required = false
	}
	if enumStr := sf.Tag.Get("enum"); enumStr != "" {
		for part := range strings.SplitSeq(enumStr, ",") {
			v, err := parseTagValue(f.Kind, strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("bad enum tag: %w", err)
			}
			f.Enum = append(f.Enum, v)
		}
	}
	return nil
}

// jsonFieldName returns the parameter name for sf, whether it is tagged omitempty or
// omitzero, and whether the field is skipped.
func jsonFieldName(sf reflect.StructField) (name string, omit, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omit = true
		}
	}
	if name == "" {
		name = sf.Name
	}
	return name, omit, false
}

// parseTagValue converts tag text to a value of kind. Tags are parsed strictly.
func parseTagValue(kind Kind, s string) (any, error) {
	switch kind {
	case KindInteger:
		return strconv.ParseInt(s, 10, 64)
	case KindNumber:
		return strconv.ParseFloat(s, 64)
	case KindBoolean:
		return strconv.ParseBool(s)
	}
	return s, nil
}
