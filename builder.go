package toolman

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// tool is the internal implementation of Tool built by NewTool or NewDynamicTool.
type tool struct {
	name        string
	description string
	schema      *Schema
	call        func(context.Context, Args) (any, error)
}

// NewTool builds a Tool from a typed function. The schema is the one given with WithSchema,
// or is inferred from T (see InferSchema); inference errors are returned here, before the
// tool can be registered. At call time the validated arguments are decoded into T using
// json tag names, then Validatable is run if T implements it.
func NewTool[T any, R any](
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: handler for %q must not be nil", ErrInvalidTool, name)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	schema := o.schema
	if schema == nil {
		var err error
		if schema, err = InferSchema[T](); err != nil {
			return nil, err
		}
	}
	call := func(ctx context.Context, args Args) (any, error) {
		in, err := decodeArgs[T](args)
		if err != nil {
			return nil, err
		}
		if err := runLayer2Validation(in); err != nil {
			if IsClientError(err) {
				return nil, err
			}
			return nil, &ClientError{Reason: err.Error(), Err: ErrValidation}
		}
		res, err := fn(ctx, in)
		if err != nil {
			return nil, wrapHandlerError(err)
		}
		return res, nil
	}
	return &tool{
		name:        name,
		description: description,
		schema:      schema,
		call:        call,
	}, nil
}

// NewDynamicTool creates a Tool from an explicit Schema and a handler that receives the
// validated, defaulted arguments as Args. Useful when the parameters are only known at run
// time (e.g. loaded with ParseSchema). schema and fn must be non-nil.
func NewDynamicTool(
	name, description string,
	schema *Schema,
	fn func(ctx context.Context, args Args) (any, error),
) (Tool, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema for %q must not be nil", ErrInvalidTool, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: handler for %q must not be nil", ErrInvalidTool, name)
	}
	call := func(ctx context.Context, args Args) (any, error) {
		res, err := fn(ctx, args)
		if err != nil {
			return nil, wrapHandlerError(err)
		}
		return res, nil
	}
	return &tool{
		name:        name,
		description: description,
		schema:      schema,
		call:        call,
	}, nil
}

func (t *tool) Name() string        { return t.name }
func (t *tool) Description() string { return t.description }
func (t *tool) Schema() *Schema     { return t.schema }

func (t *tool) Call(ctx context.Context, args Args) (any, error) {
	return t.call(ctx, args)
}

// decodeArgs converts validated arguments into T. Args and map[string]any pass through as is.
func decodeArgs[T any](args Args) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *Args:
		*p = args
		return out, nil
	case *map[string]any:
		*p = args
		return out, nil
	}
	if err := checkNumericRanges(reflect.TypeFor[T](), args); err != nil {
		return out, err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return out, &SystemError{Err: err}
	}
	if err := dec.Decode(map[string]any(args)); err != nil {
		return out, &ClientError{Reason: "decode arguments: " + err.Error(), Err: ErrValidation}
	}
	return out, nil
}

// checkNumericRanges rejects numeric arguments that do not fit the Go field they decode into
// (an int8 field given 300, an int64 given 1e20, a uint given -1). Without it the decoder would
// truncate the value silently.
func checkNumericRanges(typ reflect.Type, args Args) error {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}
	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, _, skip := jsonFieldName(sf)
		if skip {
			continue
		}
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if !fitsNumeric(ft, reflect.ValueOf(v)) {
			return validationError("argument %q: value %v is out of range for %v", name, v, ft)
		}
	}
	return nil
}

// fitsNumeric reports whether v can be stored in a value of type t without overflow or
// truncation of sign. Non-numeric combinations are left to the decoder.
func fitsNumeric(t reflect.Type, v reflect.Value) bool {
	target := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case v.CanInt():
			return !target.OverflowInt(v.Int())
		case v.CanUint():
			u := v.Uint()
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case v.CanFloat():
			f := v.Float()
			return f >= -(1<<63) && f < 1<<63 && !target.OverflowInt(int64(f))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch {
		case v.CanInt():
			i := v.Int()
			return i >= 0 && !target.OverflowUint(uint64(i))
		case v.CanUint():
			return !target.OverflowUint(v.Uint())
		case v.CanFloat():
			f := v.Float()
			return f >= 0 && f < 1<<64 && !target.OverflowUint(uint64(f))
		}
	case reflect.Float32, reflect.Float64:
		if v.CanFloat() {
			return !target.OverflowFloat(v.Float())
		}
	}
	return true
}

// wrapHandlerError passes through ClientError; wraps other errors as SystemError.
func wrapHandlerError(err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsSystemError(err) {
		return err
	}
	return &SystemError{Err: err}
}

var _ Tool = (*tool)(nil)
