package toolman

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// minTool is a minimal Tool implementation used across tests.
type minTool struct {
	name, desc string
	schema     *Schema
	call       func(context.Context, Args) (any, error)
}

func (m *minTool) Name() string        { return m.name }
func (m *minTool) Description() string { return m.desc }
func (m *minTool) Schema() *Schema     { return m.schema }
func (m *minTool) Call(ctx context.Context, args Args) (any, error) {
	if m.call != nil {
		return m.call(ctx, args)
	}
	return nil, nil
}

func TestParseToolCall_Flat(t *testing.T) {
	call, err := ParseToolCall([]byte(`{"id":"call_1","name":"weather","arguments":{"location":"Moscow"}}`))
	require.NoError(t, err)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "weather", call.Name)
	assert.Equal(t, map[string]any{"location": "Moscow"}, call.Arguments)
}

func TestParseToolCall_OpenAIShape(t *testing.T) {
	payload := `{"id":"call_abc","type":"function","function":{"name":"weather","arguments":"{\"location\":\"Paris\",\"days\":3}"}}`
	call, err := ParseToolCall([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "call_abc", call.ID)
	assert.Equal(t, "weather", call.Name)
	assert.Equal(t, map[string]any{"location": "Paris", "days": float64(3)}, call.Arguments)
}

func TestParseToolCall_EmptyArguments(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing", `{"name":"now"}`},
		{"null", `{"name":"now","arguments":null}`},
		{"empty string", `{"name":"now","arguments":""}`},
		{"blank string", `{"name":"now","arguments":"  "}`},
		{"empty object", `{"name":"now","arguments":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := ParseToolCall([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, "now", call.Name)
			assert.NotNil(t, call.Arguments)
			assert.Empty(t, call.Arguments)
		})
	}
}

func TestParseToolCall_BadArguments(t *testing.T) {
	_, err := ParseToolCall([]byte(`{"name":"weather","arguments":"[1,2]"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather")

	_, err = ParseToolCall([]byte(`{"name":"weather","arguments":"{not json"}`))
	require.Error(t, err)

	_, err = ParseToolCall([]byte(`not json`))
	require.Error(t, err)
}

func TestResult_Payload(t *testing.T) {
	ok := Result{CallID: "1", ToolName: "t", Value: map[string]string{"a": "b"}}
	assert.False(t, ok.Failed())
	assert.Empty(t, ok.ErrorText())
	assert.Equal(t, map[string]string{"a": "b"}, ok.Payload())

	failed := Result{CallID: "2", ToolName: "t", Err: &SystemError{Err: errors.New("db down")}}
	assert.True(t, failed.Failed())
	assert.Equal(t, "Error in tool 't': db down", failed.ErrorText())
	assert.Equal(t, ErrorPayload{Error: "Error in tool 't': db down"}, failed.Payload())
}

func TestNewToolMessage(t *testing.T) {
	msg := NewToolMessage(Result{CallID: "call_1", ToolName: "weather", Value: map[string]string{"temperature": "72"}})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Equal(t, "weather", msg.Name)
	assert.JSONEq(t, `{"temperature":"72"}`, msg.Content)

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"tool","tool_call_id":"call_1","name":"weather","content":"{\"temperature\":\"72\"}"}`, string(b))
}

func TestNewToolMessage_GeneratesCallID(t *testing.T) {
	a := NewToolMessage(Result{ToolName: "x", Value: "ok"})
	b := NewToolMessage(Result{ToolName: "x", Value: "ok"})
	assert.True(t, strings.HasPrefix(a.ToolCallID, "call_"))
	assert.NotEqual(t, a.ToolCallID, b.ToolCallID)
}

func TestNewToolMessage_Error(t *testing.T) {
	msg := NewToolMessage(Result{CallID: "1", ToolName: "weather", Err: validationError("bad")})
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(msg.Content), &payload))
	assert.Equal(t, "Error in tool 'weather': bad", payload["error"])
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string verbatim", "hello", "hello"},
		{"bytes as text", []byte("raw"), "raw"},
		{"raw json", json.RawMessage(`{"a":1}`), `{"a":1}`},
		{"nil", nil, "null"},
		{"number", 42, "42"},
		{"struct", struct {
			A int `json:"a"`
		}{A: 1}, `{"a":1}`},
		{"unmarshalable falls back", make(chan int), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringify(tt.in)
			if tt.want == "" {
				assert.NotEmpty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgs_Accessors(t *testing.T) {
	args := Args{"s": "text", "i": float64(7), "f": 2.5, "b": true}
	assert.True(t, args.Has("s"))
	assert.False(t, args.Has("missing"))
	assert.Equal(t, "text", args.String("s"))
	assert.Equal(t, int64(7), args.Int("i"))
	assert.InDelta(t, 2.5, args.Float("f"), 1e-9)
	assert.True(t, args.Bool("b"))
	assert.Equal(t, "", args.String("missing"))
	assert.Equal(t, int64(0), args.Int("missing"))
	assert.False(t, args.Bool("missing"))
}
