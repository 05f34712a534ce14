// Package registry provides node factory registration and the connection
// registry multiplexing live client channels.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zigzalgo/pipeworks/pkg/execution"
	"github.com/zigzalgo/pipeworks/pkg/protocol"
)

// Registry holds the closed set of node factories available to the executor.
type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

// NewRegistry creates an empty node registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node factory under its type ID.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

// CreateNode validates config against the factory schema and builds a node
// instance. Satisfies execution.NodeBuilder.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (execution.Node, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	err := validateNodeConfig(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("invalid config for node type '%s': %w", nodeType, err)
	}

	return factory.Create(ctx, id, config)
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.nodeFactories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.nodeFactories)), true
}

// NodeTypes returns the registered node type IDs.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	return types
}

func validateNodeConfig(schema, config map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("config does not match schema: %s", errs[0].String())
		}

		return fmt.Errorf("config does not match schema")
	}

	return nil
}
