// Package costs provides the cost-function components that quantify
// the disagreement between a statistical model and observed data, for
// consumption by an external gradient-free minimizer through the
// ports.Cost contract.
package costs

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
	"github.com/ahrav/go-fitcost/internal/stats"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Common errors returned by cost constructors.
var (
	// ErrEmptyParameters is returned when a cost is created without
	// parameter names; models carry no runtime signature to inspect,
	// so the names must be supplied explicitly.
	ErrEmptyParameters = errors.New("at least one parameter name is required")

	// ErrUnknownLoss is returned for an unrecognized loss name.
	ErrUnknownLoss = errors.New("unknown loss")

	// ErrEmptyTemplates is returned when a template fit is created
	// with no components.
	ErrEmptyTemplates = errors.New("at least one template component is required")
)

// LossFunc maps a squared standardized residual z to the cost term it
// contributes. The identity recovers ordinary least squares.
type LossFunc func(z float64) float64

// Built-in loss names accepted by LeastSquares configurations.
const (
	LossLinear = "linear"
	LossSoftL1 = "soft_l1"
)

func lossByName(name string) (LossFunc, error) {
	switch name {
	case "", LossLinear:
		return func(z float64) float64 { return z }, nil
	case LossSoftL1:
		return stats.SoftL1, nil
	default:
		return nil, fmt.Errorf("%w %q (expected %q or %q)",
			ErrUnknownLoss, name, LossLinear, LossSoftL1)
	}
}

// baseCost carries the state shared by every data-driven cost: the
// ordered parameter set, the active-point mask, and the diagnostics
// recorder. The mask protocol lives here so all components validate
// and apply it identically.
type baseCost struct {
	params domain.ParameterSet
	mask   []bool // nil means all points active
	diags  *domain.Diagnostics
}

func newBaseCost(params domain.ParameterSet) baseCost {
	return baseCost{params: params, diags: &domain.Diagnostics{}}
}

// Parameters returns the ordered free parameters of the cost.
func (b *baseCost) Parameters() domain.ParameterSet { return b.params }

// Diagnostics returns the component's advisory recorder.
func (b *baseCost) Diagnostics() *domain.Diagnostics { return b.diags }

// Mask returns a copy of the active-point mask, or nil when all points
// are active.
func (b *baseCost) Mask() []bool {
	if b.mask == nil {
		return nil
	}
	out := make([]bool, len(b.mask))
	copy(out, b.mask)
	return out
}

// setMask installs mask after validating it against the data's leading
// dimension n. nil reactivates all points.
func (b *baseCost) setMask(mask []bool, n int) error {
	if mask == nil {
		b.mask = nil
		return nil
	}
	if len(mask) != n {
		return domain.NewShapeError("mask", []int{n}, []int{len(mask)})
	}
	b.mask = make([]bool, n)
	copy(b.mask, mask)
	return nil
}

// active reports whether point i is active under the current mask.
func (b *baseCost) active(i int) bool { return b.mask == nil || b.mask[i] }

// activeCount returns the number of active points among n.
func (b *baseCost) activeCount(n int) int {
	if b.mask == nil {
		return n
	}
	count := 0
	for _, m := range b.mask {
		if m {
			count++
		}
	}
	return count
}

// checkArity verifies the positional parameter vector length.
func (b *baseCost) checkArity(params []float64) error {
	if len(params) != b.params.Len() {
		return domain.NewConfigError("params",
			"expected %d parameter values, got %d", b.params.Len(), len(params))
	}
	return nil
}

// probeModel records a one-shot performance diagnostic when the user
// supplied a per-point model adapter instead of a vectorized model.
func (b *baseCost) probeModel(model any) {
	switch model.(type) {
	case ports.PointModelFunc:
		b.diags.RecordOnce(domain.SeverityPerformance,
			"model is evaluated per point; supply a vectorized ports.ModelFunc for array arithmetic")
	}
}

// paramSetFromNames builds an unbounded ParameterSet from explicit
// names, rejecting empty and duplicated name lists.
func paramSetFromNames(names []string) (domain.ParameterSet, error) {
	if len(names) == 0 {
		return domain.ParameterSet{}, ErrEmptyParameters
	}
	set := domain.NewParameterSet(names...)
	if set.Len() != len(names) {
		return domain.ParameterSet{}, domain.NewConfigError("parameters",
			"parameter names must be unique, got %v", names)
	}
	return set, nil
}

// columnsEqualLength verifies that every coordinate column has length n.
func columnsEqualLength(xs [][]float64, n int) error {
	for _, col := range xs {
		if len(col) != n {
			return domain.NewShapeError("x", []int{n}, []int{len(col)})
		}
	}
	return nil
}

// cloneColumns deep-copies coordinate columns.
func cloneColumns(xs [][]float64) [][]float64 {
	out := make([][]float64, len(xs))
	for d, col := range xs {
		out[d] = make([]float64, len(col))
		copy(out[d], col)
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
