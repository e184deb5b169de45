package costs

import (
	"fmt"
	"math"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

var (
	_ ports.MaskedCost = (*UnbinnedNLL)(nil)
	_ ports.MaskedCost = (*ExtendedUnbinnedNLL)(nil)
)

// UnbinnedConfig controls construction of the unbinned likelihood
// costs.
type UnbinnedConfig struct {
	// Parameters are the ordered free parameter names of the density.
	Parameters []string `yaml:"parameters" validate:"required,min=1"`

	// Log marks the density as returning log-probabilities directly,
	// avoiding an exp/log round-trip in the evaluation loop.
	Log bool `yaml:"log"`
}

// unbinnedData holds the sample columns and masking shared by the two
// unbinned likelihoods. The mask is applied to the data before the
// density sees it, so masked invalid points (NaN) never reach the
// model; an unmasked NaN propagates to a NaN cost by design.
type unbinnedData struct {
	baseCost
	data [][]float64 // one column per coordinate dimension
	logp bool
}

func newUnbinnedData(data [][]float64, cfg UnbinnedConfig) (unbinnedData, error) {
	if err := validate.Struct(cfg); err != nil {
		return unbinnedData{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	if len(data) == 0 {
		return unbinnedData{}, domain.NewConfigError("data", "at least one sample column is required")
	}
	if err := columnsEqualLength(data, len(data[0])); err != nil {
		return unbinnedData{}, err
	}
	params, err := paramSetFromNames(cfg.Parameters)
	if err != nil {
		return unbinnedData{}, err
	}
	return unbinnedData{
		baseCost: newBaseCost(params),
		data:     cloneColumns(data),
		logp:     cfg.Log,
	}, nil
}

// NData is infinite for unbinned costs: the effective measurement
// count is unobservable as a finite number under the fit's own
// statistic.
func (u *unbinnedData) NData() float64 { return math.Inf(1) }

// ErrorDef returns the likelihood convention.
func (u *unbinnedData) ErrorDef() float64 { return ports.ErrorDefLikelihood }

// SetMask replaces the active-point mask.
func (u *unbinnedData) SetMask(mask []bool) error {
	return u.setMask(mask, len(u.data[0]))
}

// Data returns a copy of the sample columns.
func (u *unbinnedData) Data() [][]float64 { return cloneColumns(u.data) }

// SetData replaces the sample. The point count and dimensionality are
// fixed at construction; a different shape fails with a ShapeError.
func (u *unbinnedData) SetData(data [][]float64) error {
	if len(data) != len(u.data) {
		return domain.NewShapeError("data", []int{len(u.data)}, []int{len(data)})
	}
	for d := range data {
		if len(data[d]) != len(u.data[d]) {
			return domain.NewShapeError("data", []int{len(u.data[d])}, []int{len(data[d])})
		}
	}
	u.data = cloneColumns(data)
	return nil
}

// activeColumns returns the sample restricted to active points.
func (u *unbinnedData) activeColumns() [][]float64 {
	if u.mask == nil {
		return u.data
	}
	out := make([][]float64, len(u.data))
	for d, col := range u.data {
		kept := make([]float64, 0, len(col))
		for i, v := range col {
			if u.mask[i] {
				kept = append(kept, v)
			}
		}
		out[d] = kept
	}
	return out
}

// sumLogDensity accumulates log-density values, trusting NaN and -Inf
// to propagate rather than filtering them.
func (u *unbinnedData) sumLogDensity(values []float64) float64 {
	var sum float64
	for _, f := range values {
		if u.logp {
			sum += f
		} else {
			sum += math.Log(f)
		}
	}
	return sum
}

// UnbinnedNLL is the negative log-likelihood of raw observations under
// a normalized probability density: -2 * sum(log pdf(x_i)). The
// density callable returns either probability densities or, with
// Log set, log-densities.
type UnbinnedNLL struct {
	unbinnedData
	density ports.Model
}

// NewUnbinnedNLL creates an unbinned likelihood over a one-dimensional
// sample.
func NewUnbinnedNLL(sample []float64, density ports.Model, cfg UnbinnedConfig) (*UnbinnedNLL, error) {
	return NewUnbinnedNLLND([][]float64{sample}, density, cfg)
}

// NewUnbinnedNLLND creates an unbinned likelihood over a
// multi-dimensional sample, one column per coordinate dimension.
func NewUnbinnedNLLND(sample [][]float64, density ports.Model, cfg UnbinnedConfig) (*UnbinnedNLL, error) {
	base, err := newUnbinnedData(sample, cfg)
	if err != nil {
		return nil, err
	}
	u := &UnbinnedNLL{unbinnedData: base, density: density}
	u.probeModel(density)
	return u, nil
}

// Eval computes -2 * sum over active points of the log-density.
func (u *UnbinnedNLL) Eval(params []float64) (float64, error) {
	if err := u.checkArity(params); err != nil {
		return 0, err
	}
	active := u.activeColumns()
	n := len(active[0])
	f := u.density.EvalAt(active, params)
	if len(f) != n {
		return 0, domain.NewShapeError("model output", []int{n}, []int{len(f)})
	}
	return -2 * u.sumLogDensity(f), nil
}

// PDF evaluates the normalized density at arbitrary coordinates,
// consistent whichever of log/non-log form was supplied at
// construction.
func (u *UnbinnedNLL) PDF(xs [][]float64, params []float64) []float64 {
	f := u.density.EvalAt(xs, params)
	if !u.logp {
		return f
	}
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = math.Exp(v)
	}
	return out
}

// ScaledPDF returns the density scaled by the active sample size, the
// natural overlay for a histogram of the data.
func (u *UnbinnedNLL) ScaledPDF(xs [][]float64, params []float64) []float64 {
	f := u.PDF(xs, params)
	scale := float64(u.activeCount(len(u.data[0])))
	for i := range f {
		f[i] *= scale
	}
	return f
}

// Visualize fails explicitly for multi-dimensional samples.
func (u *UnbinnedNLL) Visualize(params []float64) error {
	if len(u.data) > 1 {
		return domain.NewConfigError("visualize",
			"not implemented for multi-dimensional data (%d sample columns)", len(u.data))
	}
	return nil
}

// ExtendedUnbinnedNLL is the extended maximum-likelihood cost: the
// density also predicts the total event yield, and the cost
// -2*(sum(log density) - yield) constrains the observed sample size.
type ExtendedUnbinnedNLL struct {
	unbinnedData
	density ports.ExtendedModel
}

// NewExtendedUnbinnedNLL creates an extended unbinned likelihood over
// a one-dimensional sample. The density returns the predicted total
// yield alongside per-point (log-)density values scaled by the yield.
func NewExtendedUnbinnedNLL(sample []float64, density ports.ExtendedModel, cfg UnbinnedConfig) (*ExtendedUnbinnedNLL, error) {
	return NewExtendedUnbinnedNLLND([][]float64{sample}, density, cfg)
}

// NewExtendedUnbinnedNLLND is the multi-dimensional variant.
func NewExtendedUnbinnedNLLND(sample [][]float64, density ports.ExtendedModel, cfg UnbinnedConfig) (*ExtendedUnbinnedNLL, error) {
	base, err := newUnbinnedData(sample, cfg)
	if err != nil {
		return nil, err
	}
	u := &ExtendedUnbinnedNLL{unbinnedData: base, density: density}
	u.probeModel(density)
	return u, nil
}

// Eval computes 2*(yield - sum over active points of the log-density).
func (u *ExtendedUnbinnedNLL) Eval(params []float64) (float64, error) {
	if err := u.checkArity(params); err != nil {
		return 0, err
	}
	active := u.activeColumns()
	n := len(active[0])
	yield, f := u.density.EvalAt(active, params)
	if len(f) != n {
		return 0, domain.NewShapeError("model output", []int{n}, []int{len(f)})
	}
	return 2 * (yield - u.sumLogDensity(f)), nil
}

// ScaledPDF evaluates the yield-scaled density at arbitrary
// coordinates.
func (u *ExtendedUnbinnedNLL) ScaledPDF(xs [][]float64, params []float64) []float64 {
	_, f := u.density.EvalAt(xs, params)
	if !u.logp {
		return f
	}
	out := make([]float64, len(f))
	for i, v := range f {
		out[i] = math.Exp(v)
	}
	return out
}

// PDF evaluates the normalized density, dividing the yield back out.
func (u *ExtendedUnbinnedNLL) PDF(xs [][]float64, params []float64) []float64 {
	yield, _ := u.density.EvalAt(xs, params)
	f := u.ScaledPDF(xs, params)
	for i := range f {
		f[i] /= yield
	}
	return f
}

// Visualize fails explicitly for multi-dimensional samples.
func (u *ExtendedUnbinnedNLL) Visualize(params []float64) error {
	if len(u.data) > 1 {
		return domain.NewConfigError("visualize",
			"not implemented for multi-dimensional data (%d sample columns)", len(u.data))
	}
	return nil
}
