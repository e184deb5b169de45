package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-fitcost/infrastructure/costs"
	"github.com/ahrav/go-fitcost/internal/ports"
)

// ComponentConfig describes one cost term of a declarative fit.
type ComponentConfig struct {
	// ID uniquely identifies the component within the fit.
	ID string `yaml:"id" validate:"required,identifier"`

	// Type selects the registered cost factory.
	Type string `yaml:"type" validate:"required"`

	// Config holds the factory-specific options and data arrays.
	Config map[string]any `yaml:"config"`
}

// FitConfig is the top-level schema of a declarative fit definition.
// The combined objective is the sum of all components, with shared
// parameter names fitted as common parameters.
type FitConfig struct {
	// Version is the schema version of the document.
	Version string `yaml:"version" validate:"required"`

	// Name optionally labels the fit for diagnostics.
	Name string `yaml:"name"`

	// Components are the cost terms entering the sum.
	Components []ComponentConfig `yaml:"components" validate:"required,min=1,dive"`
}

// FitLoader provides YAML configuration parsing, validation, and
// caching for fit definitions, transforming declarative documents into
// an executable combined cost. Identical configurations (after YAML
// normalization) share one compiled instance through SHA256-based
// caching.
type FitLoader struct {
	// validator performs struct field validation and custom validation
	// rules for fit configurations.
	validator *validator.Validate
	// registry provides factories for creating cost components.
	registry ports.CostRegistry
	// cache stores compiled sums indexed by the SHA256 hash of the
	// normalized configuration. Cached costs must not be mutated:
	// callers may evaluate them but never call SetMask or data setters
	// on a shared instance.
	cache map[string]*costs.CostSum
	// cacheMu protects the cache map.
	cacheMu sync.RWMutex
	// sf collapses concurrent compilations of the same configuration.
	sf singleflight.Group
}

// NewFitLoader creates a fit loader backed by the given cost registry.
func NewFitLoader(registry ports.CostRegistry) (*FitLoader, error) {
	if registry == nil {
		return nil, fmt.Errorf("cost registry is required")
	}
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &FitLoader{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*costs.CostSum),
	}, nil
}

// LoadFromFile loads and compiles a fit definition from a YAML file.
// The returned cost is a pointer to a cached instance shared between
// callers of identical configurations.
func (fl *FitLoader) LoadFromFile(path string) (*costs.CostSum, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return fl.load(data)
}

// LoadFromReader loads and compiles a fit definition from a reader.
func (fl *FitLoader) LoadFromReader(r io.Reader) (*costs.CostSum, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return fl.load(data)
}

// load parses, validates, compiles, and caches a fit definition.
func (fl *FitLoader) load(data []byte) (*costs.CostSum, error) {
	config, err := fl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Hash the normalized config, not the raw bytes, so formatting
	// differences still hit the cache.
	hash, err := fl.configHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := fl.sf.Do(hash, func() (any, error) {
		if sum, ok := fl.cachedSum(hash); ok {
			return sum, nil
		}
		if err := fl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		sum, err := fl.buildSum(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build cost: %w", err)
		}
		fl.cacheSum(hash, sum)
		return sum, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*costs.CostSum), nil
}

// parseYAML decodes the document in strict mode so unknown fields fail
// instead of being silently ignored.
func (fl *FitLoader) parseYAML(data []byte) (*FitConfig, error) {
	var config FitConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// configHash returns the SHA256 hex digest of the re-marshaled config.
func (fl *FitLoader) configHash(config *FitConfig) (string, error) {
	normalized, err := yaml.Marshal(config)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// validateConfig runs struct validation plus the semantic rules that
// tags cannot express.
func (fl *FitLoader) validateConfig(config *FitConfig) error {
	if err := fl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	seen := make(map[string]struct{}, len(config.Components))
	for _, comp := range config.Components {
		if _, dup := seen[comp.ID]; dup {
			return fmt.Errorf("duplicate component ID %q", comp.ID)
		}
		seen[comp.ID] = struct{}{}
	}
	return nil
}

// buildSum instantiates every component through the registry and
// combines them.
func (fl *FitLoader) buildSum(config *FitConfig) (*costs.CostSum, error) {
	items := make([]ports.Cost, 0, len(config.Components))
	for _, comp := range config.Components {
		cost, err := fl.registry.Create(comp.Type, comp.ID, comp.Config)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", comp.ID, err)
		}
		items = append(items, cost)
	}
	return costs.Combine(items...), nil
}

func (fl *FitLoader) cachedSum(hash string) (*costs.CostSum, bool) {
	fl.cacheMu.RLock()
	defer fl.cacheMu.RUnlock()
	sum, ok := fl.cache[hash]
	return sum, ok
}

func (fl *FitLoader) cacheSum(hash string, sum *costs.CostSum) {
	fl.cacheMu.Lock()
	defer fl.cacheMu.Unlock()
	fl.cache[hash] = sum
}
