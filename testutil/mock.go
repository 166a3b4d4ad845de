// Package testutil provides test helpers for toolman (e.g. MockTool).
package testutil

import (
	"context"

	"github.com/skosovsky/toolman"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	SchemaVal *toolman.Schema
	CallFn    func(ctx context.Context, args toolman.Args) (any, error)
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Schema returns SchemaVal, or a schema without parameters.
func (m *MockTool) Schema() *toolman.Schema {
	if m.SchemaVal != nil {
		return m.SchemaVal
	}
	return toolman.MustSchema()
}

// Call runs CallFn if set, otherwise returns nil.
func (m *MockTool) Call(ctx context.Context, args toolman.Args) (any, error) {
	if m.CallFn != nil {
		return m.CallFn(ctx, args)
	}
	return nil, nil
}

// Ensure MockTool implements Tool.
var _ toolman.Tool = (*MockTool)(nil)
