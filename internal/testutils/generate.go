// Package testutils provides deterministic data generation and small
// fitting helpers shared by tests and the dataset generator command.
package testutils

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewRand returns a seeded PCG source for reproducible samples.
func NewRand(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// NormalSample draws n values from a normal distribution.
func NormalSample(src rand.Source, n int, mu, sigma float64) []float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// ExponentialSample draws n values from an exponential distribution
// with mean tau.
func ExponentialSample(src rand.Source, n int, tau float64) []float64 {
	dist := distuv.Exponential{Rate: 1 / tau, Src: src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// Linspace returns n evenly spaced values spanning [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	floats.Span(out, lo, hi)
	return out
}

// HistogramCounts bins a sample over the given edges, dropping values
// outside the edge range.
func HistogramCounts(sample, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	for _, x := range sample {
		for b := 0; b < len(counts); b++ {
			if x >= edges[b] && x < edges[b+1] {
				counts[b]++
				break
			}
		}
	}
	return counts
}

// PoissonCounts draws one Poisson count per expected value.
func PoissonCounts(src rand.Source, mu []float64) []float64 {
	out := make([]float64, len(mu))
	for i, m := range mu {
		out[i] = distuv.Poisson{Lambda: m, Src: src}.Rand()
	}
	return out
}
