package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Reference distributions used as fit models in tests, the registry's
// model catalog, and the dataset generator.

// NormCDF returns the cumulative normal distribution at x.
func NormCDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.CDF(x)
}

// NormPDF returns the normal density at x.
func NormPDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.Prob(x)
}

// NormLogPDF returns the normal log-density at x.
func NormLogPDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.LogProb(x)
}

// ExponCDF returns the cumulative exponential distribution with mean
// tau at x, 1 - exp(-x/tau).
func ExponCDF(x, tau float64) float64 {
	return -math.Expm1(-x / tau)
}
