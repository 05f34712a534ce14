// Package registry provides node factory registration for the registry system.
package registry

import (
	"github.com/zigzalgo/pipeworks/pkg/nodes/branch"
	"github.com/zigzalgo/pipeworks/pkg/nodes/emit"
	"github.com/zigzalgo/pipeworks/pkg/nodes/httprequest"
	"github.com/zigzalgo/pipeworks/pkg/nodes/input"
	"github.com/zigzalgo/pipeworks/pkg/nodes/log"
	"github.com/zigzalgo/pipeworks/pkg/nodes/setvariable"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(setvariable.NewSetVariableNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory())
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())
	r.RegisterNode(branch.NewBranchNodeFactory())
	r.RegisterNode(input.NewInputNodeFactory())
	r.RegisterNode(emit.NewEmitNodeFactory())
}
