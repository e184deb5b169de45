package costs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
	"github.com/ahrav/go-fitcost/internal/stats"
)

var (
	_ ports.MaskedCost = (*BinnedNLL)(nil)
	_ ports.MaskedCost = (*ExtendedBinnedNLL)(nil)
)

// BinnedConfig controls construction of the binned likelihood costs.
type BinnedConfig struct {
	// Parameters are the ordered free parameter names of the model.
	Parameters []string `yaml:"parameters" validate:"required,min=1"`
}

// binnedData holds the histogram, bin edges, and the flattened
// edge-grid coordinates shared by the binned costs. The model is a
// cumulative distribution sampled at every grid corner; per-bin
// expectations come from N-dimensional differencing of the corner
// values, which for one dimension reduces to cdf(hi) - cdf(lo).
type binnedData struct {
	baseCost
	hist      *domain.Histogram
	edges     [][]float64
	grid      [][]float64 // corner coordinates, one column per dimension
	gridShape []int       // len(edges[d]) per dimension
	model     ports.Model
}

func newBinnedData(hist *domain.Histogram, edges [][]float64, model ports.Model, cfg BinnedConfig) (binnedData, error) {
	if err := validate.Struct(cfg); err != nil {
		return binnedData{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	if hist == nil {
		return binnedData{}, domain.NewConfigError("n", "histogram must not be nil")
	}
	if len(edges) == 0 {
		return binnedData{}, domain.NewConfigError("xe", "at least one edge array is required")
	}
	binShape := make([]int, len(edges))
	gridShape := make([]int, len(edges))
	for d, e := range edges {
		if len(e) < 2 {
			return binnedData{}, domain.NewConfigError("xe",
				"edge array %d needs at least two entries, got %d", d, len(e))
		}
		for i := 1; i < len(e); i++ {
			if !(e[i] > e[i-1]) {
				return binnedData{}, domain.NewConfigError("xe",
					"edge array %d must be strictly increasing", d)
			}
		}
		binShape[d] = len(e) - 1
		gridShape[d] = len(e)
	}
	shape := hist.Shape()
	if len(shape) != len(binShape) || !equalInts(shape, binShape) {
		return binnedData{}, fmt.Errorf("n must have shape %s to match the bin edges, got %s: %w",
			domain.FormatShape(binShape), domain.FormatShape(shape), domain.ErrShape)
	}
	params, err := paramSetFromNames(cfg.Parameters)
	if err != nil {
		return binnedData{}, err
	}
	b := binnedData{
		baseCost:  newBaseCost(params),
		hist:      hist.Clone(),
		edges:     cloneColumns(edges),
		gridShape: gridShape,
		model:     model,
	}
	b.grid = cornerGrid(b.edges, gridShape)
	b.probeModel(model)
	return b, nil
}

// NData returns the number of active bins.
func (b *binnedData) NData() float64 { return float64(b.activeCount(b.hist.Len())) }

// ErrorDef returns the least-squares convention; binned deviances are
// asymptotically chi-square distributed.
func (b *binnedData) ErrorDef() float64 { return ports.ErrorDefLeastSquares }

// SetMask replaces the active-bin mask.
func (b *binnedData) SetMask(mask []bool) error { return b.setMask(mask, b.hist.Len()) }

// N returns a copy of the observed histogram.
func (b *binnedData) N() *domain.Histogram { return b.hist.Clone() }

// Edges returns a copy of the bin edges.
func (b *binnedData) Edges() [][]float64 { return cloneColumns(b.edges) }

// SetN replaces the observed histogram. The binning is fixed at
// construction; a histogram with a different shape fails with a
// ShapeError.
func (b *binnedData) SetN(hist *domain.Histogram) error {
	if hist == nil {
		return domain.NewConfigError("n", "histogram must not be nil")
	}
	if !b.hist.SameBinning(hist) {
		return domain.NewShapeError("n", b.hist.Shape(), hist.Shape())
	}
	b.hist = hist.Clone()
	return nil
}

// SetCounts replaces the bin contents in place, keeping variances.
func (b *binnedData) SetCounts(counts []float64) error { return b.hist.SetCounts(counts) }

// prediction evaluates the model on the corner grid and returns the
// per-bin expectation by N-dimensional differencing.
func (b *binnedData) prediction(params []float64) ([]float64, error) {
	m := 1
	for _, d := range b.gridShape {
		m *= d
	}
	out := b.model.EvalAt(b.grid, params)
	if len(out) != m {
		return nil, fmt.Errorf(
			"expected model to return an array of shape %s, but it returns an array of shape %s: %w",
			domain.FormatShape([]int{m}), domain.FormatShape([]int{len(out)}), domain.ErrShape)
	}
	return diffND(out, b.gridShape), nil
}

// Visualize fails explicitly for multi-dimensional histograms.
func (b *binnedData) Visualize(params []float64) error {
	if len(b.edges) > 1 {
		return domain.NewConfigError("visualize",
			"not implemented for multi-dimensional data (%d binned axes)", len(b.edges))
	}
	return nil
}

// pulls returns per-bin standardized deviance residuals against the
// given per-bin expectations, NaN at masked bins. Effective counts and
// scales keep weighted bins on the unit-variance footing.
func (b *binnedData) pulls(mu []float64) []float64 {
	pulls := make([]float64, b.hist.Len())
	for i := range pulls {
		if !b.active(i) {
			pulls[i] = math.NaN()
			continue
		}
		s := b.hist.Scale(i)
		muEff := mu[i] * s
		pulls[i] = (b.hist.Count(i)*s - muEff) / math.Sqrt(muEff)
	}
	return pulls
}

// BinnedNLL is the multinomial likelihood of a histogram against a
// cumulative model: per-bin probabilities are the differenced CDF,
// renormalized over active bins and scaled to the total observed
// count. Weighted bins enter through the effective-count transform.
type BinnedNLL struct {
	binnedData
}

// NewBinnedNLL creates a multinomial binned likelihood. model is a
// cumulative distribution sampled at the bin-edge grid.
func NewBinnedNLL(hist *domain.Histogram, edges [][]float64, model ports.Model, cfg BinnedConfig) (*BinnedNLL, error) {
	base, err := newBinnedData(hist, edges, model, cfg)
	if err != nil {
		return nil, err
	}
	return &BinnedNLL{binnedData: base}, nil
}

// Eval computes the Poisson deviance of active bins against the
// renormalized multinomial prediction.
func (c *BinnedNLL) Eval(params []float64) (float64, error) {
	if err := c.checkArity(params); err != nil {
		return 0, err
	}
	mu, err := c.expected(params)
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range mu {
		if !c.active(i) {
			continue
		}
		s := c.hist.Scale(i)
		total += stats.PoissonDeviance(c.hist.Count(i)*s, mu[i]*s)
	}
	return total, nil
}

// Pulls returns per-bin standardized residuals, NaN at masked bins.
func (c *BinnedNLL) Pulls(params []float64) ([]float64, error) {
	if err := c.checkArity(params); err != nil {
		return nil, err
	}
	mu, err := c.expected(params)
	if err != nil {
		return nil, err
	}
	return c.pulls(mu), nil
}

// expected returns the per-bin expected counts p/sum(p) * ntot, where
// both the probability normalization and the observed total run over
// active bins only. Masking a bin therefore reshapes the prediction
// instead of leaving probability mass pointing at excluded data.
func (c *BinnedNLL) expected(params []float64) ([]float64, error) {
	p, err := c.prediction(params)
	if err != nil {
		return nil, err
	}
	var psum, ntot float64
	for i := range p {
		if !c.active(i) {
			continue
		}
		psum += p[i]
		ntot += c.hist.Count(i)
	}
	mu := make([]float64, len(p))
	for i := range p {
		mu[i] = p[i] / psum * ntot
	}
	return mu, nil
}

// ExtendedBinnedNLL is the extended binned likelihood: the model is a
// scaled cumulative distribution returning absolute predicted counts
// directly, so the total yield is a fitted quantity rather than being
// conditioned on the observed sample size.
type ExtendedBinnedNLL struct {
	binnedData
}

// NewExtendedBinnedNLL creates an extended binned likelihood. model is
// a scaled CDF sampled at the bin-edge grid.
func NewExtendedBinnedNLL(hist *domain.Histogram, edges [][]float64, model ports.Model, cfg BinnedConfig) (*ExtendedBinnedNLL, error) {
	base, err := newBinnedData(hist, edges, model, cfg)
	if err != nil {
		return nil, err
	}
	return &ExtendedBinnedNLL{binnedData: base}, nil
}

// Eval computes the Poisson deviance of active bins against the
// model's absolute predicted counts.
func (c *ExtendedBinnedNLL) Eval(params []float64) (float64, error) {
	if err := c.checkArity(params); err != nil {
		return 0, err
	}
	mu, err := c.prediction(params)
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range mu {
		if !c.active(i) {
			continue
		}
		s := c.hist.Scale(i)
		total += stats.PoissonDeviance(c.hist.Count(i)*s, mu[i]*s)
	}
	return total, nil
}

// Pulls returns per-bin standardized residuals, NaN at masked bins.
func (c *ExtendedBinnedNLL) Pulls(params []float64) ([]float64, error) {
	if err := c.checkArity(params); err != nil {
		return nil, err
	}
	mu, err := c.prediction(params)
	if err != nil {
		return nil, err
	}
	return c.pulls(mu), nil
}

// cornerGrid builds the flattened row-major coordinates of every
// bin-edge grid corner, one column per dimension.
func cornerGrid(edges [][]float64, gridShape []int) [][]float64 {
	m := 1
	for _, d := range gridShape {
		m *= d
	}
	cols := make([][]float64, len(edges))
	for d := range cols {
		cols[d] = make([]float64, m)
	}
	idx := make([]int, len(gridShape))
	for f := 0; f < m; f++ {
		for d := range cols {
			cols[d][f] = edges[d][idx[d]]
		}
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < gridShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return cols
}

// diffND applies successive differencing along every axis of a
// flattened row-major array, turning corner CDF values into per-bin
// content via inclusion-exclusion.
func diffND(values []float64, shape []int) []float64 {
	cur := values
	curShape := append([]int(nil), shape...)
	for axis := range curShape {
		cur, curShape = diffAlong(cur, curShape, axis)
	}
	return cur
}

func diffAlong(values []float64, shape []int, axis int) ([]float64, []int) {
	na := shape[axis]
	inner := 1
	for d := axis + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := len(values) / (na * inner)
	outShape := append([]int(nil), shape...)
	outShape[axis] = na - 1
	out := make([]float64, outer*(na-1)*inner)
	for o := 0; o < outer; o++ {
		for j := 0; j < na-1; j++ {
			src := (o*na + j) * inner
			dst := (o*(na-1) + j) * inner
			floats.SubTo(out[dst:dst+inner], values[src+inner:src+2*inner], values[src:src+inner])
		}
	}
	return out, outShape
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
