package costs

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

var _ ports.Cost = (*NormalConstraint)(nil)

// NormalConstraint is a soft Gaussian constraint on one or more
// parameters, typically encoding an external measurement or a
// systematic uncertainty. Its value is the quadratic form
// (x - v)^T C^-1 (x - v), evaluated through the Cholesky factor of the
// covariance so no explicit inverse is ever formed.
type NormalConstraint struct {
	params domain.ParameterSet
	value  []float64
	cov    *mat.SymDense
	chol   mat.Cholesky
	diags  *domain.Diagnostics
}

// NewNormalConstraint creates a constraint with independent per-parameter
// uncertainties. error holds one standard deviation per parameter.
func NewNormalConstraint(names []string, value, error []float64) (*NormalConstraint, error) {
	n := len(names)
	if n == 0 {
		return nil, ErrEmptyParameters
	}
	if len(error) != n {
		return nil, domain.NewShapeError("error", []int{n}, []int{len(error)})
	}
	cov := mat.NewSymDense(n, nil)
	for i, e := range error {
		if !(e > 0) {
			return nil, domain.NewConfigError("error",
				"standard deviation %d must be positive, got %v", i, e)
		}
		cov.SetSym(i, i, e*e)
	}
	return NewCorrelatedNormalConstraint(names, value, cov)
}

// NewCorrelatedNormalConstraint creates a constraint with a full
// covariance matrix, which must be symmetric positive definite.
func NewCorrelatedNormalConstraint(names []string, value []float64, cov *mat.SymDense) (*NormalConstraint, error) {
	params, err := paramSetFromNames(names)
	if err != nil {
		return nil, err
	}
	n := params.Len()
	if n != len(names) {
		return nil, domain.NewConfigError("parameters",
			"parameter names must be unique, got %v", names)
	}
	if len(value) != n {
		return nil, domain.NewShapeError("value", []int{n}, []int{len(value)})
	}
	if cov == nil {
		return nil, domain.NewConfigError("covariance", "covariance matrix must not be nil")
	}
	if r, _ := cov.Dims(); r != n {
		return nil, domain.NewShapeError("covariance", []int{n, n}, []int{r, r})
	}
	c := &NormalConstraint{
		params: params,
		value:  append([]float64(nil), value...),
		diags:  &domain.Diagnostics{},
	}
	if err := c.setCovariance(cov); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *NormalConstraint) setCovariance(cov *mat.SymDense) error {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return domain.NewConfigError("covariance",
			"covariance matrix is not positive definite")
	}
	clone := mat.NewSymDense(c.params.Len(), nil)
	clone.CopySym(cov)
	c.cov = clone
	c.chol = chol
	return nil
}

// Parameters returns the constrained parameters in order.
func (c *NormalConstraint) Parameters() domain.ParameterSet { return c.params }

// NData returns the number of constrained parameters; each behaves as
// one Gaussian measurement.
func (c *NormalConstraint) NData() float64 { return float64(c.params.Len()) }

// ErrorDef returns the least-squares convention; the quadratic form is
// chi-square distributed.
func (c *NormalConstraint) ErrorDef() float64 { return ports.ErrorDefLeastSquares }

// Diagnostics returns the term's recorder.
func (c *NormalConstraint) Diagnostics() *domain.Diagnostics { return c.diags }

// Value returns a copy of the central values.
func (c *NormalConstraint) Value() []float64 { return append([]float64(nil), c.value...) }

// SetValue replaces the central values, preserving the arity.
func (c *NormalConstraint) SetValue(value []float64) error {
	if len(value) != len(c.value) {
		return domain.NewShapeError("value", []int{len(c.value)}, []int{len(value)})
	}
	copy(c.value, value)
	return nil
}

// Covariance returns a copy of the covariance matrix.
func (c *NormalConstraint) Covariance() *mat.SymDense {
	clone := mat.NewSymDense(c.params.Len(), nil)
	clone.CopySym(c.cov)
	return clone
}

// SetCovariance replaces the covariance matrix, preserving the arity.
func (c *NormalConstraint) SetCovariance(cov *mat.SymDense) error {
	if r, _ := cov.Dims(); r != c.params.Len() {
		return domain.NewShapeError("covariance",
			[]int{c.params.Len(), c.params.Len()}, []int{r, r})
	}
	return c.setCovariance(cov)
}

// Eval computes the quadratic form of the deviation from the central
// values. With the Cholesky factor L of the covariance, the value is
// |L^-1 (x - v)|^2, obtained by one triangular solve.
func (c *NormalConstraint) Eval(params []float64) (float64, error) {
	n := c.params.Len()
	if len(params) != n {
		return 0, domain.NewConfigError("params",
			"expected %d parameter values, got %d", n, len(params))
	}
	delta := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		delta.SetVec(i, params[i]-c.value[i])
	}
	var z mat.VecDense
	if err := c.chol.SolveVecTo(&z, delta); err != nil {
		return 0, err
	}
	return mat.Dot(delta, &z), nil
}
