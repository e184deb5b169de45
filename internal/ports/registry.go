package ports

// CostFactory creates a cost component from a declarative configuration
// map, typically decoded from YAML. The id names the component instance
// for diagnostics and registry lookups.
type CostFactory func(id string, config map[string]any) (Cost, error)

// CostRegistry provides factories for creating cost components by type
// name, enabling declarative fit assembly from configuration files.
type CostRegistry interface {
	// Register adds a factory for the given type name. Registering a
	// name twice is an error.
	Register(typeName string, factory CostFactory) error

	// Create instantiates a cost of the given type.
	Create(typeName, id string, config map[string]any) (Cost, error)

	// Types returns the registered type names.
	Types() []string

	// Model resolves a named model from the registry's catalog.
	Model(name string) (Model, bool)
}
