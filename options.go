package toolman

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// toolOptions hold optional tool settings.
type toolOptions struct {
	schema *Schema
}

// ToolOption configures a tool built with NewTool.
type ToolOption func(*toolOptions)

// WithSchema supplies an explicit parameter schema instead of inferring one from the argument type.
// The argument type must still be able to receive the validated values (by json tag name);
// use Args or map[string]any to receive them untyped.
func WithSchema(s *Schema) ToolOption {
	return func(o *toolOptions) {
		o.schema = s
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	unknownFields  UnknownFieldPolicy
	maxConcurrency int
	onBefore       func(context.Context, ToolCall)
	onAfter        func(context.Context, ToolCall, Result, time.Duration)
}

// WithLogger sets the logger used for registration and failed-execution events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer; Execute opens one span per tool call.
// Defaults to the global tracer provider.
func WithTracer(tracer trace.Tracer) RegistryOption {
	return func(o *registryOptions) {
		o.tracer = tracer
	}
}

// WithUnknownFields sets what happens to arguments not declared in a tool's schema
// (default UnknownFieldsReject). The policy applies to every tool of the registry.
func WithUnknownFields(p UnknownFieldPolicy) RegistryOption {
	return func(o *registryOptions) {
		o.unknownFields = p
	}
}

// WithMaxConcurrency limits how many calls of one ExecuteBatch run at once.
// Pass 0 or negative for no limit.
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithOnBeforeExecute sets a hook called before each tool call is validated.
func WithOnBeforeExecute(fn func(context.Context, ToolCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool call with its Result and duration.
func WithOnAfterExecute(fn func(context.Context, ToolCall, Result, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}
