package domain

import "slices"

// Histogram holds observed bin contents for a binned cost. Counts are
// stored flattened in row-major order together with the N-dimensional
// shape. An optional variance array of the same length marks the
// histogram as weighted: a bin then represents an aggregated event
// count n with variance v instead of a pure Poisson count (for which
// the variance is n itself).
type Histogram struct {
	counts    []float64
	variances []float64 // nil for pure Poisson counts
	shape     []int
}

// NewHistogram creates a one-dimensional unweighted histogram. It never
// fails: the shape is the count length, and a zero-bin histogram is
// valid on its own (cost constructors reject it against their bin
// edges with a shape error).
func NewHistogram(counts []float64) *Histogram {
	return &Histogram{counts: slices.Clone(counts), shape: []int{len(counts)}}
}

// NewWeightedHistogram creates a one-dimensional weighted histogram
// from per-bin (count, variance) contents.
func NewWeightedHistogram(counts, variances []float64) (*Histogram, error) {
	return NewHistogramND(counts, []int{len(counts)}, variances)
}

// NewHistogramND creates an N-dimensional histogram from flattened
// row-major counts, the bin shape, and optional per-bin variances.
// The inputs are copied; callers keep ownership of their slices.
func NewHistogramND(counts []float64, shape []int, variances []float64) (*Histogram, error) {
	if len(shape) == 0 {
		return nil, NewConfigError("shape", "histogram needs at least one dimension")
	}
	n := 1
	for _, d := range shape {
		if d < 1 {
			return nil, NewConfigError("shape", "every dimension must hold at least one bin, got %v", shape)
		}
		n *= d
	}
	if len(counts) != n {
		return nil, NewShapeError("counts", shape, []int{len(counts)})
	}
	if variances != nil {
		if len(variances) != n {
			return nil, NewShapeError("variances", shape, []int{len(variances)})
		}
		for _, v := range variances {
			if v < 0 {
				return nil, NewConfigError("variances", "bin variance must be non-negative, got %g", v)
			}
		}
	}
	return &Histogram{
		counts:    slices.Clone(counts),
		variances: slices.Clone(variances),
		shape:     slices.Clone(shape),
	}, nil
}

// Len returns the number of bins.
func (h *Histogram) Len() int { return len(h.counts) }

// Shape returns a copy of the bin shape.
func (h *Histogram) Shape() []int { return slices.Clone(h.shape) }

// Weighted reports whether the histogram carries explicit variances.
func (h *Histogram) Weighted() bool { return h.variances != nil }

// Count returns the content of bin i.
func (h *Histogram) Count(i int) float64 { return h.counts[i] }

// Counts returns a copy of the flattened bin contents.
func (h *Histogram) Counts() []float64 { return slices.Clone(h.counts) }

// Variance returns the variance of bin i: the stored value for a
// weighted histogram, the count itself otherwise.
func (h *Histogram) Variance(i int) float64 {
	if h.variances != nil {
		return h.variances[i]
	}
	return h.counts[i]
}

// Scale returns the weighted-bin scale s for bin i. The deviance of a
// weighted bin is evaluated with the effective count n*s and effective
// prediction mu*s, where s = n/variance; this reproduces the correct
// uncertainty propagation for aggregated event samples without moving
// the point estimate. Unweighted bins and bins with zero variance use
// s = 1.
func (h *Histogram) Scale(i int) float64 {
	if h.variances == nil {
		return 1
	}
	if v := h.variances[i]; v > 0 {
		return h.counts[i] / v
	}
	return 1
}

// Total returns the sum of all bin contents.
func (h *Histogram) Total() float64 {
	var t float64
	for _, c := range h.counts {
		t += c
	}
	return t
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{
		counts:    slices.Clone(h.counts),
		variances: slices.Clone(h.variances),
		shape:     slices.Clone(h.shape),
	}
}

// SetCounts replaces the bin contents. The number of bins is fixed at
// construction; a different length fails with a ShapeError. Variances,
// if present, are kept.
func (h *Histogram) SetCounts(counts []float64) error {
	if len(counts) != len(h.counts) {
		return NewShapeError("counts", h.shape, []int{len(counts)})
	}
	copy(h.counts, counts)
	return nil
}

// SameBinning reports whether other has the identical bin shape.
func (h *Histogram) SameBinning(other *Histogram) bool {
	return slices.Equal(h.shape, other.shape)
}
