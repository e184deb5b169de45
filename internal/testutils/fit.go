package testutils

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/ahrav/go-fitcost/internal/ports"
)

// Minimize runs a gradient-free Nelder-Mead minimization of the cost
// from the given starting point and returns the location and value of
// the minimum.
func Minimize(c ports.Cost, x0 []float64) ([]float64, float64, error) {
	problem := optimize.Problem{Func: ports.Func(c)}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, err
	}
	return result.X, result.F, nil
}

// Curvature estimates the second derivative of the cost along
// parameter i at x by central finite differences.
func Curvature(c ports.Cost, x []float64, i int, h float64) float64 {
	f := ports.Func(c)
	lo := append([]float64(nil), x...)
	hi := append([]float64(nil), x...)
	lo[i] -= h
	hi[i] += h
	return (f(hi) - 2*f(x) + f(lo)) / (h * h)
}

// ErrorEstimate converts the curvature at the minimum into the
// one-sigma parameter uncertainty under the cost's errordef
// convention: sigma = sqrt(2*errordef/curvature).
func ErrorEstimate(c ports.Cost, x []float64, i int, h float64) float64 {
	k := Curvature(c, x, i, h)
	return math.Sqrt(2 * c.ErrorDef() / k)
}
