package toolman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RoleTool is the conversation role of a tool message envelope.
const RoleTool = "tool"

// Tool is the contract for an LLM-callable instrument.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type Tool interface {
	Name() string
	Description() string
	// Schema returns the flat parameter schema. It must not change after registration.
	Schema() *Schema
	// Call runs the tool with arguments already validated against Schema and defaulted.
	Call(ctx context.Context, args Args) (any, error)
}

// ToolCall is a single execution request (as produced by the LLM).
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// UnmarshalJSON accepts both the flat shape {"id","name","arguments"} and the OpenAI shape
// {"id","type":"function","function":{"name","arguments"}}. Arguments may be an object or a
// string holding a JSON object; an empty string or null means no arguments.
func (c *ToolCall) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
		Function  *struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	name, rawArgs := wire.Name, wire.Arguments
	if wire.Function != nil {
		name, rawArgs = wire.Function.Name, wire.Function.Arguments
	}
	args, err := decodeArguments(rawArgs)
	if err != nil {
		return fmt.Errorf("tool call %q: %w", name, err)
	}
	*c = ToolCall{ID: wire.ID, Name: name, Arguments: args}
	return nil
}

// ParseToolCall decodes a provider tool-call payload (see ToolCall.UnmarshalJSON).
func ParseToolCall(data []byte) (ToolCall, error) {
	var c ToolCall
	if err := json.Unmarshal(data, &c); err != nil {
		return ToolCall{}, err
	}
	return c, nil
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace([]byte(s))) == 0 {
			return map[string]any{}, nil
		}
		raw = []byte(s)
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// ToolDefinition is a tool description in the function-calling wire format.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition is the "function" part of a ToolDefinition.
// Parameters comes from Schema.JSONSchema: its "properties" value is an ordered map
// (*orderedmap.OrderedMap[string, any] from github.com/wk8/go-ordered-map/v2), not a
// map[string]any. Use Schema.Fields to inspect parameters programmatically.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is the outcome of one tool call. Value is exactly what the tool returned;
// Err is set (and Value nil) when validation or execution failed.
type Result struct {
	CallID   string
	ToolName string
	Value    any
	Err      error
}

// Failed reports whether the call ended in an in-band error.
func (r Result) Failed() bool { return r.Err != nil }

// ErrorText returns "Error in tool '<name>': <reason>", or "" on success.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return formatToolError(r.ToolName, r.Err)
}

// Payload returns the value to show the model: Value on success, ErrorPayload on failure.
func (r Result) Payload() any {
	if r.Err != nil {
		return ErrorPayload{Error: r.ErrorText()}
	}
	return r.Value
}

// ErrorPayload is the structured error shape returned for failed calls: {"error": "..."}.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Message is the role "tool" conversation entry carrying a tool's output.
type Message struct {
	Role       string `json:"role"`
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// NewToolMessage builds the envelope for res. A result without a call ID gets a generated one.
func NewToolMessage(res Result) Message {
	id := res.CallID
	if id == "" {
		id = newCallID()
	}
	return Message{
		Role:       RoleTool,
		ToolCallID: id,
		Name:       res.ToolName,
		Content:    stringify(res.Payload()),
	}
}

// newCallID returns an id in the provider style, "call_<uuid>".
func newCallID() string { return "call_" + uuid.NewString() }

// stringify renders a payload as message content: strings verbatim, bytes as text, the rest as JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []byte:
		return string(x)
	case json.RawMessage:
		return string(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
