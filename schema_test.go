package toolman

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func temperatureSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		String("location", WithDescription("City name")),
		String("unit", WithDefault("Celsius"), WithEnum("Celsius", "Fahrenheit")),
	)
	require.NoError(t, err)
	return s
}

func TestNewSchema_Fields(t *testing.T) {
	s := temperatureSchema(t)
	require.Equal(t, 2, s.Len())
	fields := s.Fields()
	assert.Equal(t, "location", fields[0].Name)
	assert.Equal(t, KindString, fields[0].Kind)
	assert.True(t, fields[0].Required)
	assert.Nil(t, fields[0].Default)
	assert.Equal(t, "unit", fields[1].Name)
	assert.False(t, fields[1].Required)
	assert.Equal(t, "Celsius", fields[1].Default)
	assert.Equal(t, []string{"location"}, s.Required())

	f, ok := s.Field("unit")
	require.True(t, ok)
	assert.Equal(t, []any{"Celsius", "Fahrenheit"}, f.Enum)
	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestNewSchema_FieldsAreCopies(t *testing.T) {
	s := temperatureSchema(t)
	fields := s.Fields()
	fields[0].Name = "changed"
	fields[1].Enum[0] = "Kelvin"
	again := s.Fields()
	assert.Equal(t, "location", again[0].Name)
	assert.Equal(t, "Celsius", again[1].Enum[0])
}

func TestNewSchema_NormalizesNumbers(t *testing.T) {
	s, err := NewSchema(
		Integer("count", WithDefault(3)),
		Number("ratio", WithDefault(1)),
		Integer("level", WithEnum(1, 2.0, int8(3))),
	)
	require.NoError(t, err)
	count, _ := s.Field("count")
	assert.Equal(t, int64(3), count.Default)
	ratio, _ := s.Field("ratio")
	assert.Equal(t, float64(1), ratio.Default)
	level, _ := s.Field("level")
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, level.Enum)
}

func TestNewSchema_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty name", []Field{String("")}},
		{"duplicate", []Field{String("a"), Integer("a")}},
		{"unknown kind", []Field{{Name: "a", Kind: "object", Required: true}}},
		{"missing kind", []Field{{Name: "a", Required: true}}},
		{"required with default", []Field{{Name: "a", Kind: KindString, Required: true, Default: "x"}}},
		{"default wrong type", []Field{String("a", WithDefault(1))}},
		{"integer default not integral", []Field{Integer("a", WithDefault(1.5))}},
		{"enum wrong type", []Field{Boolean("a", WithEnum("yes"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchema(tt.fields...)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestMustSchema_Panics(t *testing.T) {
	assert.Panics(t, func() { MustSchema(String("a"), String("a")) })
	assert.NotPanics(t, func() { MustSchema(String("a")) })
}

func TestSchema_JSONSchema(t *testing.T) {
	s := temperatureSchema(t)
	m := s.JSONSchema()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"location"}, m["required"])

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"location": {"type": "string", "description": "City name"},
			"unit": {"type": "string", "enum": ["Celsius", "Fahrenheit"], "default": "Celsius"}
		},
		"required": ["location"]
	}`, string(b))
	// Properties keep declaration order on the wire.
	assert.Less(t, strings.Index(string(b), `"location"`), strings.Index(string(b), `"unit"`))
}

func TestSchema_JSONSchema_DeclarationOrder(t *testing.T) {
	s, err := NewSchema(String("zeta"), String("alpha"), String("mid"))
	require.NoError(t, err)
	b, err := json.Marshal(s.JSONSchema())
	require.NoError(t, err)
	out := string(b)
	assert.Less(t, strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`))
	assert.Less(t, strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`))
}

func TestSchema_JSONSchema_PropertiesType(t *testing.T) {
	params := temperatureSchema(t).JSONSchema()
	_, isPlainMap := params["properties"].(map[string]any)
	assert.False(t, isPlainMap)
	props, ok := params["properties"].(*orderedmap.OrderedMap[string, any])
	require.True(t, ok)
	loc, ok := props.Get("location")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "string", "description": "City name"}, loc)
}

func TestSchema_JSONSchema_Empty(t *testing.T) {
	s, err := NewSchema()
	require.NoError(t, err)
	b, err := json.Marshal(s.JSONSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{},"required":[]}`, string(b))
}

func TestSchema_Validate(t *testing.T) {
	s := temperatureSchema(t)
	tests := []struct {
		name     string
		args     map[string]any
		want     Args
		fail     bool
		contains string
	}{
		{name: "all present", args: map[string]any{"location": "SF", "unit": "Fahrenheit"}, want: Args{"location": "SF", "unit": "Fahrenheit"}},
		{name: "default filled", args: map[string]any{"location": "SF"}, want: Args{"location": "SF", "unit": "Celsius"}},
		{name: "missing required", args: map[string]any{"unit": "Celsius"}, fail: true},
		{name: "nil args", args: nil, fail: true},
		{name: "wrong type", args: map[string]any{"location": 123}, fail: true},
		{name: "null value", args: map[string]any{"location": nil}, fail: true},
		{name: "enum mismatch", args: map[string]any{"location": "SF", "unit": "Kelvin"}, fail: true},
		{name: "unknown field", args: map[string]any{"location": "SF", "extra": 1, "another": true}, fail: true, contains: "unknown argument(s): another, extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Validate(tt.args)
			if tt.fail {
				require.Error(t, err)
				assert.True(t, IsClientError(err))
				assert.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, err.Error(), tt.contains)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Validate_DoesNotMutateInput(t *testing.T) {
	s := temperatureSchema(t)
	in := map[string]any{"location": "SF"}
	_, err := s.Validate(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"location": "SF"}, in)
}

func TestSchema_Validate_DropUnknown(t *testing.T) {
	s := temperatureSchema(t)
	got, err := s.validate(map[string]any{"location": "SF", "extra": 1}, UnknownFieldsDrop)
	require.NoError(t, err)
	assert.Equal(t, Args{"location": "SF", "unit": "Celsius"}, got)
}

func TestSchema_Validate_Kinds(t *testing.T) {
	s, err := NewSchema(Integer("n", Optional()), Number("x", Optional()), Boolean("b", Optional()))
	require.NoError(t, err)
	tests := []struct {
		name string
		args map[string]any
		ok   bool
	}{
		{"integral float is integer", map[string]any{"n": float64(3)}, true},
		{"go int is integer", map[string]any{"n": 3}, true},
		{"fractional is not integer", map[string]any{"n": 3.5}, false},
		{"string is not integer", map[string]any{"n": "3"}, false},
		{"integer is number", map[string]any{"x": 2}, true},
		{"float is number", map[string]any{"x": 2.5}, true},
		{"string is not number", map[string]any{"x": "2.5"}, false},
		{"bool", map[string]any{"b": false}, true},
		{"string is not bool", map[string]any{"b": "true"}, false},
		{"optional absent", map[string]any{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.args)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestConforms(t *testing.T) {
	assert.True(t, conforms(KindInteger, json.Number("12")))
	assert.False(t, conforms(KindInteger, json.Number("1.5")))
	assert.True(t, conforms(KindNumber, json.Number("1.5")))
	assert.False(t, conforms(KindString, json.Number("1")))
	assert.False(t, conforms(KindString, nil))
	assert.True(t, conforms(KindNumber, uint8(1)))
	assert.False(t, conforms(KindBoolean, 0))
}
