package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-fitcost/internal/ports"
)

// lineModel is a vectorized straight line y = a + b*x used as a
// registered model in registry and loader tests.
func lineModel() ports.Model {
	return ports.ModelFunc(func(xs [][]float64, p []float64) []float64 {
		out := make([]float64, len(xs[0]))
		for i, x := range xs[0] {
			out[i] = p[0] + p[1]*x
		}
		return out
	})
}

// uniformCDFModel is a uniform CDF on [0, hi].
func uniformCDFModel(hi float64) ports.Model {
	return ports.ModelFunc(func(xs [][]float64, _ []float64) []float64 {
		out := make([]float64, len(xs[0]))
		for i, x := range xs[0] {
			out[i] = x / hi
		}
		return out
	})
}

func newTestRegistry(t *testing.T) *DefaultCostRegistry {
	t.Helper()
	r := NewDefaultCostRegistry()
	require.NoError(t, r.RegisterModel("line", lineModel()))
	require.NoError(t, r.RegisterModel("uniform3", uniformCDFModel(3)))
	return r
}

func TestDefaultCostRegistryTypes(t *testing.T) {
	r := NewDefaultCostRegistry()
	types := r.Types()
	for _, want := range []string{
		"binned_nll", "constant", "extended_binned_nll",
		"least_squares", "normal_constraint", "template", "unbinned_nll",
	} {
		assert.Contains(t, types, want)
	}
}

func TestDefaultCostRegistryRegister(t *testing.T) {
	r := NewDefaultCostRegistry()

	t.Run("rejects duplicates and invalid input", func(t *testing.T) {
		factory := func(string, map[string]any) (ports.Cost, error) { return nil, nil }
		require.NoError(t, r.Register("custom", factory))
		assert.Error(t, r.Register("custom", factory))
		assert.Error(t, r.Register("", factory))
		assert.Error(t, r.Register("other", nil))
	})

	t.Run("model catalog", func(t *testing.T) {
		_, ok := r.Model("line")
		assert.False(t, ok)
		require.NoError(t, r.RegisterModel("line", lineModel()))
		_, ok = r.Model("line")
		assert.True(t, ok)
		assert.Error(t, r.RegisterModel("", lineModel()))
		assert.Error(t, r.RegisterModel("nil", nil))
	})
}

func TestDefaultCostRegistryCreate(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("least squares", func(t *testing.T) {
		c, err := r.Create("least_squares", "lsq", map[string]any{
			"x":          []any{1, 2, 3},
			"y":          []any{3, 5, 7},
			"yerror":     []any{1, 1, 1},
			"model":      "line",
			"parameters": []any{"a", "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, c.Parameters().Names())

		v, err := c.Eval([]float64{1, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-12)
	})

	t.Run("binned nll with weighted counts", func(t *testing.T) {
		c, err := r.Create("binned_nll", "spectrum", map[string]any{
			"counts":     []any{2, 2, 2},
			"variances":  []any{2, 2, 2},
			"edges":      []any{0, 1, 2, 3},
			"model":      "uniform3",
			"parameters": []any{"p"},
		})
		require.NoError(t, err)
		assert.Equal(t, 3.0, c.NData())
		v, err := c.Eval([]float64{0})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("template", func(t *testing.T) {
		c, err := r.Create("template", "mix", map[string]any{
			"counts":    []any{1, 2, 3},
			"edges":     []any{0, 1, 2, 3},
			"templates": []any{[]any{1, 1, 0}, []any{0, 1, 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x0", "x1"}, c.Parameters().Names())
		v, err := c.Eval([]float64{2, 4})
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("normal constraint and constant", func(t *testing.T) {
		c, err := r.Create("normal_constraint", "ext", map[string]any{
			"parameters": []any{"a"},
			"value":      []any{1.5},
			"error":      []any{0.5},
		})
		require.NoError(t, err)
		v, err := c.Eval([]float64{2.0})
		require.NoError(t, err)
		assert.InDelta(t, 1, v, 1e-12)

		k, err := r.Create("constant", "offset", map[string]any{"value": 2.5})
		require.NoError(t, err)
		v, err = k.Eval(nil)
		require.NoError(t, err)
		assert.Equal(t, 2.5, v)
	})

	t.Run("failure modes", func(t *testing.T) {
		_, err := r.Create("does_not_exist", "x", nil)
		assert.ErrorContains(t, err, "unsupported cost type")

		_, err = r.Create("least_squares", "", nil)
		assert.ErrorContains(t, err, "ID cannot be empty")

		_, err = r.Create("least_squares", "lsq", map[string]any{
			"x": []any{1}, "y": []any{1}, "yerror": []any{1},
			"model":      "unknown",
			"parameters": []any{"a"},
		})
		assert.ErrorContains(t, err, "not registered")

		_, err = r.Create("least_squares", "lsq", map[string]any{
			"x": []any{1}, "y": []any{1}, "yerror": []any{1},
			"parameters": []any{"a"},
		})
		assert.ErrorContains(t, err, "'model'")
	})
}
