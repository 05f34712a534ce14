// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/zigzalgo/pipeworks/pkg/registry"
)

// NewRegistry builds a node registry with all built-in node types registered.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes()

	return reg
}
