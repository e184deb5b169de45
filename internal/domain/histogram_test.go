package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistogramND(t *testing.T) {
	tests := []struct {
		name      string
		counts    []float64
		shape     []int
		variances []float64
		wantErr   error
	}{
		{
			name:   "valid 1d",
			counts: []float64{1, 2, 3},
			shape:  []int{3},
		},
		{
			name:   "valid 2d",
			counts: []float64{1, 2, 3, 4, 5, 6},
			shape:  []int{2, 3},
		},
		{
			name:      "valid weighted",
			counts:    []float64{1, 2},
			shape:     []int{2},
			variances: []float64{4, 8},
		},
		{
			name:    "counts shape mismatch",
			counts:  []float64{1, 2, 3},
			shape:   []int{4},
			wantErr: ErrShape,
		},
		{
			name:      "variances shape mismatch",
			counts:    []float64{1, 2},
			shape:     []int{2},
			variances: []float64{4},
			wantErr:   ErrShape,
		},
		{
			name:      "negative variance",
			counts:    []float64{1, 2},
			shape:     []int{2},
			variances: []float64{4, -1},
			wantErr:   ErrConfiguration,
		},
		{
			name:    "empty shape",
			counts:  []float64{},
			shape:   []int{},
			wantErr: ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHistogramND(tt.counts, tt.shape, tt.variances)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.shape, h.Shape())
			assert.Equal(t, len(tt.counts), h.Len())
		})
	}
}

func TestNewHistogramEmpty(t *testing.T) {
	h := NewHistogram(nil)
	require.NotNil(t, h)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, []int{0}, h.Shape())
	assert.Equal(t, 0.0, h.Total())
	assert.False(t, h.Weighted())
}

func TestHistogramVarianceAndScale(t *testing.T) {
	t.Run("unweighted uses counts as variance and unit scale", func(t *testing.T) {
		h := NewHistogram([]float64{3, 0})
		assert.False(t, h.Weighted())
		assert.Equal(t, 3.0, h.Variance(0))
		assert.Equal(t, 1.0, h.Scale(0))
		assert.Equal(t, 1.0, h.Scale(1))
	})

	t.Run("weighted scale is count over variance", func(t *testing.T) {
		h, err := NewWeightedHistogram([]float64{4, 2, 1}, []float64{16, 2, 0})
		require.NoError(t, err)
		assert.True(t, h.Weighted())
		assert.Equal(t, 0.25, h.Scale(0))
		assert.Equal(t, 1.0, h.Scale(1))
		// Zero-variance bins fall back to the Poisson footing.
		assert.Equal(t, 1.0, h.Scale(2))
	})
}

func TestHistogramMutation(t *testing.T) {
	h := NewHistogram([]float64{1, 2, 3})

	t.Run("inputs are copied", func(t *testing.T) {
		counts := []float64{9, 9}
		g, err := NewHistogramND(counts, []int{2}, nil)
		require.NoError(t, err)
		counts[0] = 0
		assert.Equal(t, 9.0, g.Count(0))
	})

	t.Run("set counts keeps the shape fixed", func(t *testing.T) {
		require.NoError(t, h.SetCounts([]float64{4, 5, 6}))
		assert.Equal(t, []float64{4, 5, 6}, h.Counts())

		err := h.SetCounts([]float64{1, 2})
		assert.ErrorIs(t, err, ErrShape)
	})

	t.Run("clone is independent", func(t *testing.T) {
		c := h.Clone()
		require.NoError(t, c.SetCounts([]float64{0, 0, 0}))
		assert.Equal(t, []float64{4, 5, 6}, h.Counts())
	})

	t.Run("same binning compares shapes", func(t *testing.T) {
		assert.True(t, h.SameBinning(NewHistogram([]float64{7, 8, 9})))
		assert.False(t, h.SameBinning(NewHistogram([]float64{7, 8})))
	})

	t.Run("total", func(t *testing.T) {
		assert.Equal(t, 15.0, h.Total())
	})
}

func TestShapeErrorMessage(t *testing.T) {
	err := NewShapeError("mask", []int{3}, []int{2})
	assert.EqualError(t, err, "shape mismatch: mask: expected (3,), got (2,)")
	assert.True(t, errors.Is(err, ErrShape))

	assert.Equal(t, "(2, 5)", FormatShape([]int{2, 5}))
	assert.Equal(t, "(12,)", FormatShape([]int{12}))
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	d.Record(SeverityInfo, "first")
	d.RecordOnce(SeverityDeprecation, "dup")
	d.RecordOnce(SeverityDeprecation, "dup")
	require.Len(t, d.Entries(), 2)
	assert.Equal(t, SeverityDeprecation, d.Entries()[1].Severity)

	d.Clear()
	assert.Empty(t, d.Entries())
}
