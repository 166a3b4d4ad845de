package toolman

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/skosovsky/toolman"

// Span attributes follow the OpenTelemetry GenAI semantic conventions for tool execution.
const (
	attrOperationName = "gen_ai.operation.name"
	attrToolName      = "gen_ai.tool.name"
	attrToolCallID    = "gen_ai.tool.call.id"
	attrErrorType     = "error.type"
)

// toolNamePattern is the name format accepted by function-calling APIs.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Registry holds tools by name and executes tool calls against them.
// Register and Use are serialized; Execute, Tools and GetTool may run concurrently with each other.
type Registry struct {
	mu          sync.RWMutex
	order       []string        // registration order of names
	tools       map[string]Tool // wrapped with middlewares, used by Execute
	rawTools    map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	middlewares []Middleware
	opts        registryOptions
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		rawTools: make(map[string]Tool),
		opts:     o,
	}
}

// Register adds a tool. Stored middlewares (see Use) are applied to the tool before registration.
// If a tool with the same name already exists, it is replaced and keeps its position in Tools.
// Returns ErrInvalidTool (and registers nothing) for a nil tool, a nil schema or a name
// that function-calling APIs would reject.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: tool must not be nil", ErrInvalidTool)
	}
	name := t.Name()
	if !toolNamePattern.MatchString(name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidTool, name, toolNamePattern)
	}
	if t.Schema() == nil {
		return fmt.Errorf("%w: tool %q has no schema", ErrInvalidTool, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rawTools[name]; exists {
		r.opts.logger.Debug("tool replaced", "tool", name)
	} else {
		r.order = append(r.order, name)
		r.opts.logger.Debug("tool registered", "tool", name, "params", t.Schema().Len())
	}
	r.rawTools[name] = t
	r.tools[name] = r.decorate(t)
	return nil
}

// RegisterFunc builds a tool with NewTool and registers it. If schema inference fails,
// the error is returned and the registry is left unchanged.
func RegisterFunc[T any, R any](
	r *Registry,
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) error {
	t, err := NewTool(name, description, fn, opts...)
	if err != nil {
		return err
	}
	return r.Register(t)
}

// Tools returns the function-calling descriptors of all registered tools, in registration order.
// Every call builds a fresh snapshot; mutating it does not affect the registry.
func (r *Registry) Tools() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, ToolDefinition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        name,
				Description: t.Description(),
				Parameters:  t.Schema().JSONSchema(),
			},
		})
	}
	return out
}

// GetTool returns the tool with the given name (after middlewares are applied), or (nil, false) if not found.
func (r *Registry) GetTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Execute validates and runs one tool call.
//
// The only returned error is ErrToolNotFound, for a name that was never registered.
// Every other failure (invalid arguments, handler error, panic) is reported in-band:
// Result.Err is set and the Message content is {"error": "Error in tool '<name>': <reason>"}.
// On success Result.Value is exactly what the tool returned.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (Result, Message, error) {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, Message{}, fmt.Errorf("%w: %q", ErrToolNotFound, call.Name)
	}
	res := r.run(ctx, t, call)
	return res, NewToolMessage(res), nil
}

// run executes call on t. A call without an ID gets one here, so the Result, Message, span,
// logs and hooks all carry the same ID. The after-execution hook is always invoked with the final Result.
func (r *Registry) run(ctx context.Context, t Tool, call ToolCall) (res Result) {
	if call.ID == "" {
		call.ID = newCallID()
	}
	ctx, span := r.opts.tracer.Start(ctx, "execute_tool "+call.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(attrOperationName, "execute_tool"),
			attribute.String(attrToolName, call.Name),
			attribute.String(attrToolCallID, call.ID),
		))
	defer span.End()

	res = Result{CallID: call.ID, ToolName: call.Name}
	start := time.Now()
	// Recover defer is registered after this one so it runs first on panic and sets res.Err.
	defer func() {
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.ErrorText())
			span.SetAttributes(attribute.String(attrErrorType, errorType(res.Err)))
			r.opts.logger.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "error", res.Err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, call, res, time.Since(start))
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			res.Value = nil
			res.Err = &SystemError{Err: &panicError{p: p}}
		}
	}()

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}
	args, err := t.Schema().validate(call.Arguments, r.opts.unknownFields)
	if err != nil {
		res.Err = err
		return res
	}
	v, err := t.Call(ctx, args)
	if err != nil {
		res.Err = wrapHandlerError(err)
		return res
	}
	res.Value = v
	return res
}

// ExecuteBatch runs several tool calls concurrently (bounded by WithMaxConcurrency) and returns
// results and messages in call order. All names are checked first: if any is unknown,
// ErrToolNotFound is returned and no call runs. Failures of individual calls are in-band,
// so one failing call does not affect the others.
func (r *Registry) ExecuteBatch(ctx context.Context, calls []ToolCall) ([]Result, []Message, error) {
	r.mu.RLock()
	tools := make([]Tool, len(calls))
	for i, call := range calls {
		t, ok := r.tools[call.Name]
		if !ok {
			r.mu.RUnlock()
			return nil, nil, fmt.Errorf("%w: %q", ErrToolNotFound, call.Name)
		}
		tools[i] = t
	}
	r.mu.RUnlock()

	results := make([]Result, len(calls))
	messages := make([]Message, len(calls))
	var g errgroup.Group
	if r.opts.maxConcurrency > 0 {
		g.SetLimit(r.opts.maxConcurrency)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.run(ctx, tools[i], call)
			messages[i] = NewToolMessage(results[i])
			return nil
		})
	}
	_ = g.Wait() // run never fails; errors are in-band
	return results, messages, nil
}

// errorType classifies an in-band failure for tracing.
func errorType(err error) string {
	switch {
	case IsClientError(err):
		return "validation"
	case IsSystemError(err):
		return "tool_error"
	}
	return fmt.Sprintf("%T", err)
}
