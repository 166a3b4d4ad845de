package testutil

import (
	"io"
	"log/slog"

	"github.com/skosovsky/toolman"
)

// NewTestRegistry returns a Registry holding tools, with logging discarded.
// It panics if any tool cannot be registered.
func NewTestRegistry(tools ...toolman.Tool) *toolman.Registry {
	reg := toolman.NewRegistry(
		toolman.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			panic(err)
		}
	}
	return reg
}
