// Package ports defines the interfaces between the cost components and
// their collaborators: the evaluation contract consumed by an external
// gradient-free minimizer, the model callables supplied by users, and
// the registry used for declarative fit assembly.
package ports

import (
	"math"

	"github.com/ahrav/go-fitcost/internal/domain"
)

// Minimizer uncertainty-scale conventions. A cost change of errordef
// units corresponds to one standard deviation on a fitted parameter.
const (
	// ErrorDefLeastSquares is the chi-square convention.
	ErrorDefLeastSquares = 1.0

	// ErrorDefLikelihood is the negative log-likelihood convention.
	ErrorDefLikelihood = 0.5
)

// Cost is the contract every cost component exposes to a minimizer.
// Eval must be a pure function of the supplied parameter vector and the
// component's current (data, mask) state: same inputs, same scalar, no
// side effects beyond the diagnostics recorder. Numerical degeneracies
// (NaN, Inf in data or model output) propagate through the returned
// value rather than becoming errors, so the minimizer can reject the
// step; errors are reserved for contract violations such as a wrong
// parameter count.
type Cost interface {
	// Parameters returns the ordered set of free parameter names with
	// optional bounds, in the positional order Eval expects.
	Parameters() domain.ParameterSet

	// NData returns the number of independent residual terms after
	// masking, or math.Inf(1) for unbinned costs.
	NData() float64

	// ErrorDef returns the uncertainty-scale convention of the value.
	ErrorDef() float64

	// Eval computes the cost for the given positional parameter values.
	Eval(params []float64) (float64, error)

	// Diagnostics returns the component's advisory recorder.
	Diagnostics() *domain.Diagnostics
}

// MaskedCost is implemented by data-driven costs whose points or bins
// can be excluded without mutating the data arrays.
type MaskedCost interface {
	Cost

	// Mask returns a copy of the active-point mask, or nil when all
	// points are active.
	Mask() []bool

	// SetMask replaces the mask. A mask whose length does not match
	// the data's leading dimension fails with a ShapeError; nil
	// reactivates all points.
	SetMask(mask []bool) error
}

// Model evaluates a vectorized user model on coordinate columns.
// xs holds one column per coordinate dimension; all columns have equal
// length n and the returned slice must also have length n. For binned
// costs the columns enumerate the flattened bin-edge grid and the model
// returns the (scaled) CDF at each grid node.
type Model interface {
	EvalAt(xs [][]float64, params []float64) []float64
}

// ModelFunc adapts an ordinary vectorized function to Model.
type ModelFunc func(xs [][]float64, params []float64) []float64

// EvalAt implements Model.
func (f ModelFunc) EvalAt(xs [][]float64, params []float64) []float64 {
	return f(xs, params)
}

// PointModelFunc adapts a per-point function to Model by iterating over
// rows. Constructing a cost with a PointModelFunc records a one-shot
// performance diagnostic: per-element iteration works but forgoes the
// vectorized arithmetic the evaluation loop is designed around.
type PointModelFunc func(x []float64, params []float64) float64

// EvalAt implements Model.
func (f PointModelFunc) EvalAt(xs [][]float64, params []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	n := len(xs[0])
	out := make([]float64, n)
	point := make([]float64, len(xs))
	for i := 0; i < n; i++ {
		for d := range xs {
			point[d] = xs[d][i]
		}
		out[i] = f(point, params)
	}
	return out
}

// ExtendedModel is a density that also predicts the total event yield,
// used by the extended unbinned likelihood.
type ExtendedModel interface {
	EvalAt(xs [][]float64, params []float64) (yield float64, values []float64)
}

// ExtendedModelFunc adapts an ordinary function to ExtendedModel.
type ExtendedModelFunc func(xs [][]float64, params []float64) (float64, []float64)

// EvalAt implements ExtendedModel.
func (f ExtendedModelFunc) EvalAt(xs [][]float64, params []float64) (float64, []float64) {
	return f(xs, params)
}

// Func adapts a Cost to the plain objective signature used by
// gradient-free minimizers such as gonum/optimize. Contract violations
// surface as NaN, which minimizers treat as a rejected step.
func Func(c Cost) func([]float64) float64 {
	return func(params []float64) float64 {
		v, err := c.Eval(params)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}
