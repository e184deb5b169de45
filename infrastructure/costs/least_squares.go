package costs

import (
	"fmt"
	"math"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

// Compile-time interface checks.
var _ ports.MaskedCost = (*LeastSquares)(nil)

// LeastSquares compares observed values y at coordinates x against a
// model prediction, weighting each squared residual by its measurement
// error and passing it through a selectable robust loss. With the
// linear loss this is the ordinary chi-square statistic; the soft L1
// loss damps the influence of outliers.
//
// Coordinates may span several dimensions (one column per dimension);
// y and yerror are one value per point, with a single-element yerror
// broadcast across all points.
type LeastSquares struct {
	baseCost

	x     [][]float64 // one column per coordinate dimension
	y     []float64
	yerr  []float64 // length 1 (broadcast) or len(y)
	model ports.Model

	loss     LossFunc
	lossName string // empty for a custom LossFunc
}

// LeastSquaresConfig controls construction of a LeastSquares cost.
type LeastSquaresConfig struct {
	// Parameters are the ordered free parameter names of the model.
	Parameters []string `yaml:"parameters" validate:"required,min=1"`

	// Loss selects the robust loss by name: "linear" (default) or
	// "soft_l1". Use SetLossFunc for a custom mapping.
	Loss string `yaml:"loss"`
}

// NewLeastSquares creates a least-squares cost over one-dimensional
// coordinates. yerr must hold one error per point or a single value
// broadcast to all points.
func NewLeastSquares(x, y, yerr []float64, model ports.Model, cfg LeastSquaresConfig) (*LeastSquares, error) {
	return NewLeastSquaresND([][]float64{x}, y, yerr, model, cfg)
}

// NewLeastSquaresND creates a least-squares cost over multi-dimensional
// coordinates, one column per dimension.
func NewLeastSquaresND(x [][]float64, y, yerr []float64, model ports.Model, cfg LeastSquaresConfig) (*LeastSquares, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if len(x) == 0 {
		return nil, domain.NewConfigError("x", "at least one coordinate column is required")
	}
	if err := columnsEqualLength(x, len(y)); err != nil {
		return nil, err
	}
	if len(yerr) != len(y) && len(yerr) != 1 {
		return nil, domain.NewShapeError("yerror", []int{len(y)}, []int{len(yerr)})
	}
	loss, err := lossByName(cfg.Loss)
	if err != nil {
		return nil, err
	}
	params, err := paramSetFromNames(cfg.Parameters)
	if err != nil {
		return nil, err
	}

	ls := &LeastSquares{
		baseCost: newBaseCost(params),
		x:        cloneColumns(x),
		y:        append([]float64(nil), y...),
		yerr:     append([]float64(nil), yerr...),
		model:    model,
		loss:     loss,
		lossName: cfg.Loss,
	}
	if ls.lossName == "" {
		ls.lossName = LossLinear
	}
	ls.probeModel(model)
	return ls, nil
}

// NData returns the number of active points.
func (ls *LeastSquares) NData() float64 { return float64(ls.activeCount(len(ls.y))) }

// ErrorDef returns the least-squares convention.
func (ls *LeastSquares) ErrorDef() float64 { return ports.ErrorDefLeastSquares }

// SetMask replaces the active-point mask.
func (ls *LeastSquares) SetMask(mask []bool) error { return ls.setMask(mask, len(ls.y)) }

// Eval computes sum over active points of loss(((y - model)/yerror)^2).
func (ls *LeastSquares) Eval(params []float64) (float64, error) {
	if err := ls.checkArity(params); err != nil {
		return 0, err
	}
	ym := ls.model.EvalAt(ls.x, params)
	if len(ym) != len(ls.y) {
		return 0, domain.NewShapeError("model output", []int{len(ls.y)}, []int{len(ym)})
	}
	var total float64
	for i := range ls.y {
		if !ls.active(i) {
			continue
		}
		r := (ls.y[i] - ym[i]) / ls.yerrorAt(i)
		total += ls.loss(r * r)
	}
	return total, nil
}

// Pulls returns the signed standardized residual (y - model)/yerror per
// point, with NaN at masked-out points, for goodness-of-fit diagnostics.
func (ls *LeastSquares) Pulls(params []float64) ([]float64, error) {
	if err := ls.checkArity(params); err != nil {
		return nil, err
	}
	ym := ls.model.EvalAt(ls.x, params)
	if len(ym) != len(ls.y) {
		return nil, domain.NewShapeError("model output", []int{len(ls.y)}, []int{len(ym)})
	}
	pulls := make([]float64, len(ls.y))
	for i := range ls.y {
		if !ls.active(i) {
			pulls[i] = math.NaN()
			continue
		}
		pulls[i] = (ls.y[i] - ym[i]) / ls.yerrorAt(i)
	}
	return pulls, nil
}

func (ls *LeastSquares) yerrorAt(i int) float64 {
	if len(ls.yerr) == 1 {
		return ls.yerr[0]
	}
	return ls.yerr[i]
}

// X returns a copy of the coordinate columns.
func (ls *LeastSquares) X() [][]float64 { return cloneColumns(ls.x) }

// Y returns a copy of the observed values.
func (ls *LeastSquares) Y() []float64 { return append([]float64(nil), ls.y...) }

// YError returns a copy of the per-point errors (possibly length 1).
func (ls *LeastSquares) YError() []float64 { return append([]float64(nil), ls.yerr...) }

// Loss returns the active loss name; "custom" after SetLossFunc.
func (ls *LeastSquares) Loss() string { return ls.lossName }

// SetX replaces the coordinates. The point count is fixed at
// construction; a different length fails with a ShapeError.
func (ls *LeastSquares) SetX(x [][]float64) error {
	if len(x) != len(ls.x) {
		return domain.NewShapeError("x", []int{len(ls.x)}, []int{len(x)})
	}
	if err := columnsEqualLength(x, len(ls.y)); err != nil {
		return err
	}
	ls.x = cloneColumns(x)
	return nil
}

// SetY replaces the observed values, preserving the point count.
func (ls *LeastSquares) SetY(y []float64) error {
	if len(y) != len(ls.y) {
		return domain.NewShapeError("y", []int{len(ls.y)}, []int{len(y)})
	}
	copy(ls.y, y)
	return nil
}

// SetYError replaces the measurement errors, preserving their shape.
func (ls *LeastSquares) SetYError(yerr []float64) error {
	if len(yerr) != len(ls.yerr) {
		return domain.NewShapeError("yerror", []int{len(ls.yerr)}, []int{len(yerr)})
	}
	copy(ls.yerr, yerr)
	return nil
}

// SetLoss selects a built-in loss by name.
func (ls *LeastSquares) SetLoss(name string) error {
	loss, err := lossByName(name)
	if err != nil {
		return err
	}
	ls.loss = loss
	if name == "" {
		name = LossLinear
	}
	ls.lossName = name
	return nil
}

// SetLossFunc installs a custom loss mapping.
func (ls *LeastSquares) SetLossFunc(f LossFunc) error {
	if f == nil {
		return domain.NewConfigError("loss", "loss function must not be nil")
	}
	ls.loss = f
	ls.lossName = "custom"
	return nil
}

// Visualize is the hook for an external plotting collaborator. It fails
// explicitly for multi-dimensional coordinates, where one-dimensional
// rendering is undefined.
func (ls *LeastSquares) Visualize(params []float64) error {
	if len(ls.x) > 1 {
		return domain.NewConfigError("visualize",
			"not implemented for multi-dimensional data (%d coordinate columns)", len(ls.x))
	}
	return nil
}
