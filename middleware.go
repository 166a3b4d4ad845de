package toolman

import (
	"context"
	"log/slog"
	"time"
)

// Middleware decorates a Tool's Call. Name, Description and Schema must be left unchanged,
// since the registry lists and validates against them.
type Middleware func(Tool) Tool

// WithLogging logs every call that reaches the tool: "tool start" before, then
// "tool end" or "tool error" with the elapsed time. A nil logger means slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		return &loggedTool{wrapped: wrapped{next}, logger: logger}
	}
}

// WithRecovery turns a panic in the tool into a *SystemError.
// Registry.Execute already does this; the middleware is for tools invoked directly.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return &recoveredTool{wrapped{next}}
	}
}

// wrapped forwards the descriptive methods to the decorated tool.
type wrapped struct{ next Tool }

func (w *wrapped) Name() string        { return w.next.Name() }
func (w *wrapped) Description() string { return w.next.Description() }
func (w *wrapped) Schema() *Schema     { return w.next.Schema() }

type loggedTool struct {
	wrapped
	logger *slog.Logger
}

func (l *loggedTool) Call(ctx context.Context, args Args) (any, error) {
	name := l.next.Name()
	l.logger.InfoContext(ctx, "tool start", "tool", name, "args", len(args))
	began := time.Now()
	v, err := l.next.Call(ctx, args)
	elapsed := time.Since(began)
	if err != nil {
		l.logger.ErrorContext(ctx, "tool error", "tool", name, "duration", elapsed, "error", err)
		return nil, err
	}
	l.logger.InfoContext(ctx, "tool end", "tool", name, "duration", elapsed)
	return v, nil
}

type recoveredTool struct{ wrapped }

func (rt *recoveredTool) Call(ctx context.Context, args Args) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, &SystemError{Err: &panicError{p: p}}
		}
	}()
	return rt.next.Call(ctx, args)
}

// Use replaces the registry's middleware chain and rewraps every registered tool from its
// undecorated form, so repeated calls never stack. The first middleware is the outermost.
// Tools registered later are wrapped with the same chain.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for _, name := range r.order {
		r.tools[name] = r.decorate(r.rawTools[name])
	}
}

// decorate applies the current middleware chain to t. Callers hold r.mu.
func (r *Registry) decorate(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}
