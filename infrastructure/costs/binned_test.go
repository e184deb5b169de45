package costs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

// uniformCDF is a parameter-shifted uniform CDF on [0, hi]: the slope
// parameter only shifts the value so the bin contents stay uniform at
// the reference parameter zero.
func uniformCDF(hi float64) ports.Model {
	return ports.ModelFunc(func(xs [][]float64, p []float64) []float64 {
		out := make([]float64, len(xs[0]))
		for i, x := range xs[0] {
			out[i] = x/hi + p[0]*x*(hi-x)
		}
		return out
	})
}

func TestNewBinnedNLL(t *testing.T) {
	edges := [][]float64{{0, 1, 2, 3}}
	hist := domain.NewHistogram([]float64{1, 2, 3})
	cfg := BinnedConfig{Parameters: []string{"p"}}

	tests := []struct {
		name    string
		hist    *domain.Histogram
		edges   [][]float64
		wantErr error
		wantMsg string
	}{
		{name: "valid", hist: hist, edges: edges},
		{
			name:    "nil histogram",
			edges:   edges,
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "too few edges",
			hist:    hist,
			edges:   [][]float64{{0}},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "non increasing edges",
			hist:    hist,
			edges:   [][]float64{{0, 2, 1, 3}},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "histogram does not match edges",
			hist:    domain.NewHistogram([]float64{1, 2}),
			edges:   edges,
			wantErr: domain.ErrShape,
			wantMsg: "n must have shape (3,) to match the bin edges, got (2,)",
		},
		{
			name:    "zero-bin histogram",
			hist:    domain.NewHistogram(nil),
			edges:   edges,
			wantErr: domain.ErrShape,
			wantMsg: "got (0,)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewBinnedNLL(tt.hist, tt.edges, uniformCDF(3), cfg)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantMsg != "" {
					assert.Contains(t, err.Error(), tt.wantMsg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3.0, c.NData())
			assert.Equal(t, 1.0, c.ErrorDef())
		})
	}
}

func TestBinnedNLLEval(t *testing.T) {
	edges := [][]float64{{0, 1, 2}}

	t.Run("zero when the prediction matches the data", func(t *testing.T) {
		hist := domain.NewHistogram([]float64{2, 2})
		c, err := NewBinnedNLL(hist, edges, uniformCDF(2), BinnedConfig{Parameters: []string{"p"}})
		require.NoError(t, err)
		v, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("positive for a mismatching shape", func(t *testing.T) {
		hist := domain.NewHistogram([]float64{3, 1})
		c, err := NewBinnedNLL(hist, edges, uniformCDF(2), BinnedConfig{Parameters: []string{"p"}})
		require.NoError(t, err)
		v, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.Greater(t, v, 0.0)
	})

	t.Run("model output length mismatch", func(t *testing.T) {
		bad := ports.ModelFunc(func([][]float64, []float64) []float64 {
			return []float64{1, 2}
		})
		hist := domain.NewHistogram([]float64{2, 2})
		c, err := NewBinnedNLL(hist, edges, bad, BinnedConfig{Parameters: []string{"p"}})
		require.NoError(t, err)
		_, err = c.Eval([]float64{0})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrShape)
		assert.Contains(t, err.Error(),
			"expected model to return an array of shape (3,), but it returns an array of shape (2,)")
	})
}

func TestBinnedNLLMaskRenormalizes(t *testing.T) {
	// With the first bin masked, the multinomial prediction is
	// renormalized over the remaining bins; the equal remaining counts
	// then agree exactly with the uniform model.
	hist := domain.NewHistogram([]float64{5, 2, 2})
	edges := [][]float64{{0, 1, 2, 3}}
	c, err := NewBinnedNLL(hist, edges, uniformCDF(3), BinnedConfig{Parameters: []string{"p"}})
	require.NoError(t, err)

	full, err := c.Eval([]float64{0})
	require.NoError(t, err)
	assert.Greater(t, full, 0.0)

	require.NoError(t, c.SetMask([]bool{false, true, true}))
	assert.Equal(t, 2.0, c.NData())
	masked, err := c.Eval([]float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 0, masked, 1e-9)
}

func TestBinnedNLLWeighted(t *testing.T) {
	counts := []float64{4, 8, 8}
	edges := [][]float64{{0, 1, 2, 3}}
	cfg := BinnedConfig{Parameters: []string{"p"}}

	plain, err := NewBinnedNLL(domain.NewHistogram(counts), edges, uniformCDF(3), cfg)
	require.NoError(t, err)

	t.Run("variance equal to counts reproduces the Poisson case", func(t *testing.T) {
		h, err := domain.NewWeightedHistogram(counts, counts)
		require.NoError(t, err)
		c, err := NewBinnedNLL(h, edges, uniformCDF(3), cfg)
		require.NoError(t, err)

		want, err := plain.Eval([]float64{0})
		require.NoError(t, err)
		got, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	})

	t.Run("quadrupled variance quarters the statistic", func(t *testing.T) {
		// Scaling every bin variance by 4 halves the effective sample
		// size, so parameter errors grow by a factor 2.
		variances := []float64{16, 32, 32}
		h, err := domain.NewWeightedHistogram(counts, variances)
		require.NoError(t, err)
		c, err := NewBinnedNLL(h, edges, uniformCDF(3), cfg)
		require.NoError(t, err)

		want, err := plain.Eval([]float64{0})
		require.NoError(t, err)
		got, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.InDelta(t, want/4, got, 1e-9)
	})
}

func TestBinnedNLLPulls(t *testing.T) {
	hist := domain.NewHistogram([]float64{2, 2})
	edges := [][]float64{{0, 1, 2}}
	c, err := NewBinnedNLL(hist, edges, uniformCDF(2), BinnedConfig{Parameters: []string{"p"}})
	require.NoError(t, err)

	pulls, err := c.Pulls([]float64{0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, pulls, 1e-9)

	require.NoError(t, c.SetMask([]bool{false, true}))
	pulls, err = c.Pulls([]float64{0})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(pulls[0]))
	assert.InDelta(t, 0, pulls[1], 1e-9)
}

func TestBinnedNLLTwoDim(t *testing.T) {
	// Product-uniform CDF on [0,2]x[0,3]; six equal bins.
	cdf := ports.ModelFunc(func(xs [][]float64, _ []float64) []float64 {
		out := make([]float64, len(xs[0]))
		for i := range out {
			out[i] = xs[0][i] / 2 * xs[1][i] / 3
		}
		return out
	})
	counts := []float64{4, 4, 4, 4, 4, 4}
	hist, err := domain.NewHistogramND(counts, []int{2, 3}, nil)
	require.NoError(t, err)
	edges := [][]float64{{0, 1, 2}, {0, 1, 2, 3}}

	c, err := NewBinnedNLL(hist, edges, cdf, BinnedConfig{Parameters: []string{"p"}})
	require.NoError(t, err)
	assert.Equal(t, 6.0, c.NData())

	v, err := c.Eval([]float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-9)

	assert.ErrorIs(t, c.Visualize([]float64{0}), domain.ErrConfiguration)
}

func TestBinnedNLLDataUpdate(t *testing.T) {
	hist := domain.NewHistogram([]float64{2, 2})
	edges := [][]float64{{0, 1, 2}}
	c, err := NewBinnedNLL(hist, edges, uniformCDF(2), BinnedConfig{Parameters: []string{"p"}})
	require.NoError(t, err)

	t.Run("construction copies the histogram", func(t *testing.T) {
		require.NoError(t, hist.SetCounts([]float64{9, 9}))
		assert.Equal(t, []float64{2, 2}, c.N().Counts())
	})

	t.Run("set counts", func(t *testing.T) {
		require.NoError(t, c.SetCounts([]float64{3, 3}))
		v, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("replacement histogram must keep the binning", func(t *testing.T) {
		require.NoError(t, c.SetN(domain.NewHistogram([]float64{1, 1})))
		assert.ErrorIs(t, c.SetN(domain.NewHistogram([]float64{1, 1, 1})), domain.ErrShape)
	})

	t.Run("edges accessor returns a copy", func(t *testing.T) {
		c.Edges()[0][0] = 42
		assert.Equal(t, 0.0, c.Edges()[0][0])
	})
}

func TestExtendedBinnedNLL(t *testing.T) {
	// Scaled uniform CDF: parameter is the total yield.
	scaled := ports.ModelFunc(func(xs [][]float64, p []float64) []float64 {
		out := make([]float64, len(xs[0]))
		for i, x := range xs[0] {
			out[i] = p[0] * x / 2
		}
		return out
	})
	hist := domain.NewHistogram([]float64{2, 2})
	edges := [][]float64{{0, 1, 2}}
	c, err := NewExtendedBinnedNLL(hist, edges, scaled, BinnedConfig{Parameters: []string{"n"}})
	require.NoError(t, err)

	t.Run("zero at the observed yield", func(t *testing.T) {
		v, err := c.Eval([]float64{4})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("penalizes a wrong yield, unlike the multinomial form", func(t *testing.T) {
		v, err := c.Eval([]float64{6})
		require.NoError(t, err)
		assert.Greater(t, v, 0.0)
	})

	t.Run("masked bins are excluded without renormalization", func(t *testing.T) {
		require.NoError(t, c.SetMask([]bool{true, false}))
		v, err := c.Eval([]float64{4})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
		assert.Equal(t, 1.0, c.NData())
	})
}
