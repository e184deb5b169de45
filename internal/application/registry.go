// Package application assembles cost functions from declarative
// configuration: a registry of cost factories and named models, and a
// YAML loader that compiles validated fit definitions into a combined
// cost with caching.
package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-fitcost/infrastructure/costs"
	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.CostRegistry = (*DefaultCostRegistry)(nil)

// DefaultCostRegistry implements the CostRegistry interface providing a
// factory for creating cost components based on type and configuration.
// Models referenced by name in configurations are resolved through the
// registry's catalog, which callers populate with RegisterModel.
type DefaultCostRegistry struct {
	// factories maps cost type strings to their factory functions.
	factories map[string]ports.CostFactory
	// models is the catalog of named models referenced by configs.
	models map[string]ports.Model
	// mu protects concurrent access to both maps.
	mu sync.RWMutex
}

// NewDefaultCostRegistry creates a registry with the standard cost
// types pre-registered: least_squares, unbinned_nll, binned_nll,
// extended_binned_nll, template, normal_constraint, and constant.
func NewDefaultCostRegistry() *DefaultCostRegistry {
	r := &DefaultCostRegistry{
		factories: make(map[string]ports.CostFactory),
		models:    make(map[string]ports.Model),
	}
	r.registerBuiltinFactories()
	return r
}

// Register adds a factory for the given type name.
func (r *DefaultCostRegistry) Register(typeName string, factory ports.CostFactory) error {
	if typeName == "" {
		return fmt.Errorf("cost type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %q cannot be nil", typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeName]; exists {
		return fmt.Errorf("cost type %q is already registered", typeName)
	}
	r.factories[typeName] = factory
	return nil
}

// RegisterModel adds a named model to the catalog, replacing any
// previous entry of the same name.
func (r *DefaultCostRegistry) RegisterModel(name string, model ports.Model) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if model == nil {
		return fmt.Errorf("model %q cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = model
	return nil
}

// Model resolves a named model from the catalog.
func (r *DefaultCostRegistry) Model(name string) (ports.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Create instantiates a cost of the given type.
func (r *DefaultCostRegistry) Create(typeName, id string, config map[string]any) (ports.Cost, error) {
	r.mu.RLock()
	factory, exists := r.factories[typeName]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported cost type: %s", typeName)
	}
	if id == "" {
		return nil, fmt.Errorf("cost ID cannot be empty")
	}
	if config == nil {
		config = make(map[string]any)
	}
	cost, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cost %q: %w", typeName, id, err)
	}
	return cost, nil
}

// Types returns the registered type names in sorted order.
func (r *DefaultCostRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// registerBuiltinFactories registers the standard cost types provided
// by the fitting framework.
func (r *DefaultCostRegistry) registerBuiltinFactories() {
	r.factories["least_squares"] = func(id string, config map[string]any) (ports.Cost, error) {
		x, err := floatColumns(config, "x")
		if err != nil {
			return nil, err
		}
		y, err := floatSlice(config, "y")
		if err != nil {
			return nil, err
		}
		yerr, err := floatSlice(config, "yerror")
		if err != nil {
			return nil, err
		}
		model, err := r.resolveModel(config)
		if err != nil {
			return nil, err
		}
		cfg := costs.LeastSquaresConfig{
			Parameters: stringSlice(config, "parameters"),
			Loss:       stringValue(config, "loss"),
		}
		return costs.NewLeastSquaresND(x, y, yerr, model, cfg)
	}

	r.factories["unbinned_nll"] = func(id string, config map[string]any) (ports.Cost, error) {
		data, err := floatColumns(config, "data")
		if err != nil {
			return nil, err
		}
		model, err := r.resolveModel(config)
		if err != nil {
			return nil, err
		}
		cfg := costs.UnbinnedConfig{
			Parameters: stringSlice(config, "parameters"),
			Log:        boolValue(config, "log"),
		}
		return costs.NewUnbinnedNLLND(data, model, cfg)
	}

	binnedFactory := func(extended bool) ports.CostFactory {
		return func(id string, config map[string]any) (ports.Cost, error) {
			hist, err := histogramFromConfig(config)
			if err != nil {
				return nil, err
			}
			edges, err := floatColumns(config, "edges")
			if err != nil {
				return nil, err
			}
			model, err := r.resolveModel(config)
			if err != nil {
				return nil, err
			}
			cfg := costs.BinnedConfig{Parameters: stringSlice(config, "parameters")}
			if extended {
				return costs.NewExtendedBinnedNLL(hist, edges, model, cfg)
			}
			return costs.NewBinnedNLL(hist, edges, model, cfg)
		}
	}
	r.factories["binned_nll"] = binnedFactory(false)
	r.factories["extended_binned_nll"] = binnedFactory(true)

	r.factories["template"] = func(id string, config map[string]any) (ports.Cost, error) {
		hist, err := histogramFromConfig(config)
		if err != nil {
			return nil, err
		}
		edges, err := floatColumns(config, "edges")
		if err != nil {
			return nil, err
		}
		raw, err := floatMatrix(config, "templates")
		if err != nil {
			return nil, err
		}
		comps := make([]costs.TemplateComponent, len(raw))
		for i, counts := range raw {
			th, err := domain.NewHistogramND(counts, hist.Shape(), nil)
			if err != nil {
				return nil, fmt.Errorf("template %d: %w", i, err)
			}
			comps[i] = costs.HistogramComponent(th)
		}
		cfg := costs.TemplateConfig{
			Method: stringValue(config, "method"),
			Names:  stringSlice(config, "names"),
		}
		return costs.NewTemplate(hist, edges, comps, cfg)
	}

	r.factories["normal_constraint"] = func(id string, config map[string]any) (ports.Cost, error) {
		value, err := floatSlice(config, "value")
		if err != nil {
			return nil, err
		}
		sigma, err := floatSlice(config, "error")
		if err != nil {
			return nil, err
		}
		return costs.NewNormalConstraint(stringSlice(config, "parameters"), value, sigma)
	}

	r.factories["constant"] = func(id string, config map[string]any) (ports.Cost, error) {
		v, err := floatValue(config, "value")
		if err != nil {
			return nil, err
		}
		return costs.NewConstant(v), nil
	}
}

// resolveModel looks up the "model" entry of a config in the catalog.
func (r *DefaultCostRegistry) resolveModel(config map[string]any) (ports.Model, error) {
	name := stringValue(config, "model")
	if name == "" {
		return nil, fmt.Errorf("config requires a 'model' entry naming a registered model")
	}
	model, ok := r.Model(name)
	if !ok {
		return nil, fmt.Errorf("model %q is not registered", name)
	}
	return model, nil
}

// histogramFromConfig builds the observed histogram from the "counts"
// and optional "variances" entries.
func histogramFromConfig(config map[string]any) (*domain.Histogram, error) {
	counts, err := floatSlice(config, "counts")
	if err != nil {
		return nil, err
	}
	if _, ok := config["variances"]; !ok {
		return domain.NewHistogram(counts), nil
	}
	variances, err := floatSlice(config, "variances")
	if err != nil {
		return nil, err
	}
	return domain.NewWeightedHistogram(counts, variances)
}
