package costs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ahrav/go-fitcost/internal/domain"
)

func TestNewNormalConstraint(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		value   []float64
		sigma   []float64
		wantErr error
	}{
		{
			name:  "valid",
			names: []string{"a", "b"}, value: []float64{1, 2}, sigma: []float64{1, 2},
		},
		{
			name:  "value length mismatch",
			names: []string{"a", "b"}, value: []float64{1}, sigma: []float64{1, 2},
			wantErr: domain.ErrShape,
		},
		{
			name:  "sigma length mismatch",
			names: []string{"a", "b"}, value: []float64{1, 2}, sigma: []float64{1},
			wantErr: domain.ErrShape,
		},
		{
			name:  "non-positive sigma",
			names: []string{"a"}, value: []float64{1}, sigma: []float64{0},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:  "duplicate names",
			names: []string{"a", "a"}, value: []float64{1, 2}, sigma: []float64{1, 2},
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "no names",
			value:   []float64{},
			sigma:   []float64{},
			wantErr: ErrEmptyParameters,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewNormalConstraint(tt.names, tt.value, tt.sigma)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.names, c.Parameters().Names())
			assert.Equal(t, float64(len(tt.names)), c.NData())
			assert.Equal(t, 1.0, c.ErrorDef())
		})
	}

	t.Run("empty names fail before the covariance is built", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_, err := NewNormalConstraint(nil, nil, nil)
			assert.ErrorIs(t, err, ErrEmptyParameters)
		})
	})

	t.Run("nil covariance", func(t *testing.T) {
		_, err := NewCorrelatedNormalConstraint([]string{"a"}, []float64{0}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestNormalConstraintEval(t *testing.T) {
	t.Run("independent uncertainties", func(t *testing.T) {
		c, err := NewNormalConstraint([]string{"a", "b"}, []float64{1, 2}, []float64{1, 2})
		require.NoError(t, err)

		v, err := c.Eval([]float64{1, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-12)

		// One sigma on a, one sigma on b.
		v, err = c.Eval([]float64{2, 4})
		require.NoError(t, err)
		assert.InDelta(t, 2, v, 1e-12)
	})

	t.Run("full covariance reduces to the diagonal case", func(t *testing.T) {
		cov := mat.NewSymDense(2, []float64{1, 0, 0, 4})
		c, err := NewCorrelatedNormalConstraint([]string{"a", "b"}, []float64{1, 2}, cov)
		require.NoError(t, err)
		v, err := c.Eval([]float64{2, 4})
		require.NoError(t, err)
		assert.InDelta(t, 2, v, 1e-12)
	})

	t.Run("correlation tilts the quadratic form", func(t *testing.T) {
		cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
		c, err := NewCorrelatedNormalConstraint([]string{"a", "b"}, []float64{0, 0}, cov)
		require.NoError(t, err)

		// delta = (1, 0): delta^T C^-1 delta = 1/(1 - 0.25) = 4/3.
		v, err := c.Eval([]float64{1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 4.0/3.0, v, 1e-9)

		// The anticorrelated direction is penalized harder.
		anti, err := c.Eval([]float64{1, -1})
		require.NoError(t, err)
		along, err := c.Eval([]float64{1, 1})
		require.NoError(t, err)
		assert.Greater(t, anti, along)
	})

	t.Run("wrong parameter count", func(t *testing.T) {
		c, err := NewNormalConstraint([]string{"a"}, []float64{0}, []float64{1})
		require.NoError(t, err)
		_, err = c.Eval([]float64{0, 0})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestNormalConstraintSetters(t *testing.T) {
	c, err := NewNormalConstraint([]string{"a", "b"}, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)

	t.Run("set value", func(t *testing.T) {
		require.NoError(t, c.SetValue([]float64{1, 1}))
		assert.Equal(t, []float64{1, 1}, c.Value())
		v, err := c.Eval([]float64{1, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-12)

		assert.ErrorIs(t, c.SetValue([]float64{1}), domain.ErrShape)
	})

	t.Run("set covariance", func(t *testing.T) {
		require.NoError(t, c.SetCovariance(mat.NewSymDense(2, []float64{4, 0, 0, 4})))
		v, err := c.Eval([]float64{3, 1})
		require.NoError(t, err)
		assert.InDelta(t, 1, v, 1e-12)

		assert.ErrorIs(t, c.SetCovariance(mat.NewSymDense(3, nil)), domain.ErrShape)
	})

	t.Run("rejects a non positive definite covariance", func(t *testing.T) {
		bad := mat.NewSymDense(2, []float64{1, 2, 2, 1})
		err := c.SetCovariance(bad)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("accessors return copies", func(t *testing.T) {
		c.Covariance().SetSym(0, 0, 99)
		assert.Equal(t, 4.0, c.Covariance().At(0, 0))
		c.Value()[0] = 99
		assert.Equal(t, 1.0, c.Value()[0])
	})
}
