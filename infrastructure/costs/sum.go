package costs

import (
	"math"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

var _ ports.Cost = (*CostSum)(nil)

// CostSum combines independent cost terms into one objective function.
// The combined parameter set is the union of the terms' parameters in
// first-seen order; parameters sharing a name are fitted as one common
// parameter across terms. The sum follows the least-squares errordef
// convention, so likelihood-convention terms are rescaled to keep the
// combined minimum's error contours consistent.
type CostSum struct {
	params domain.ParameterSet
	items  []ports.Cost
	// index[k] maps the k-th term's positional parameters into the
	// combined parameter vector.
	index [][]int
	diags *domain.Diagnostics
}

// Combine creates the sum of the given cost terms. Nested CostSum
// arguments are flattened, so Combine(Combine(a, b), c) holds the three
// leaf terms directly.
func Combine(items ...ports.Cost) *CostSum {
	s := &CostSum{diags: &domain.Diagnostics{}}
	for _, item := range items {
		s.append(item)
	}
	s.reindex()
	return s
}

// Plus returns a new sum extended by more terms; s is not modified.
func (s *CostSum) Plus(items ...ports.Cost) *CostSum {
	return Combine(append(append([]ports.Cost{}, s.items...), items...)...)
}

func (s *CostSum) append(item ports.Cost) {
	if inner, ok := item.(*CostSum); ok {
		s.items = append(s.items, inner.items...)
		return
	}
	s.items = append(s.items, item)
}

func (s *CostSum) reindex() {
	s.params = domain.ParameterSet{}
	for _, item := range s.items {
		s.params = s.params.Merge(item.Parameters())
	}
	s.index = make([][]int, len(s.items))
	for k, item := range s.items {
		names := item.Parameters().Names()
		idx := make([]int, len(names))
		for j, name := range names {
			idx[j] = s.params.Index(name)
		}
		s.index[k] = idx
	}
}

// Parameters returns the merged parameter set of all terms.
func (s *CostSum) Parameters() domain.ParameterSet { return s.params }

// Diagnostics returns the sum's own recorder. Term-level diagnostics
// stay on the terms.
func (s *CostSum) Diagnostics() *domain.Diagnostics { return s.diags }

// ErrorDef returns the least-squares convention of the combined cost.
func (s *CostSum) ErrorDef() float64 { return ports.ErrorDefLeastSquares }

// NData returns the summed data count of all terms; a single unbinned
// term makes the total infinite.
func (s *CostSum) NData() float64 {
	var total float64
	for _, item := range s.items {
		total += item.NData()
	}
	return total
}

// Eval evaluates every term on its slice of the combined parameter
// vector and sums the values. Terms with a likelihood errordef are
// multiplied by errordef(sum)/errordef(term) so that one unit of the
// combined function corresponds to one standard deviation for every
// term.
func (s *CostSum) Eval(params []float64) (float64, error) {
	if len(params) != s.params.Len() {
		return 0, domain.NewConfigError("params",
			"expected %d parameter values, got %d", s.params.Len(), len(params))
	}
	var total float64
	var sub []float64
	for k, item := range s.items {
		idx := s.index[k]
		if cap(sub) < len(idx) {
			sub = make([]float64, len(idx))
		}
		sub = sub[:len(idx)]
		for j, i := range idx {
			sub[j] = params[i]
		}
		v, err := item.Eval(sub)
		if err != nil {
			return 0, err
		}
		if ed := item.ErrorDef(); ed != ports.ErrorDefLeastSquares {
			v *= ports.ErrorDefLeastSquares / ed
		}
		total += v
	}
	return total, nil
}

// Len returns the number of leaf terms.
func (s *CostSum) Len() int { return len(s.items) }

// At returns the k-th leaf term.
func (s *CostSum) At(k int) ports.Cost { return s.items[k] }

// Index returns the position of the first occurrence of item among the
// leaf terms, or -1.
func (s *CostSum) Index(item ports.Cost) int {
	for k, it := range s.items {
		if it == item {
			return k
		}
	}
	return -1
}

// Count returns how many leaf terms are the given item.
func (s *CostSum) Count(item ports.Cost) int {
	n := 0
	for _, it := range s.items {
		if it == item {
			n++
		}
	}
	return n
}

// Constant is a parameterless additive offset. Adding one to a CostSum
// shifts the function value without moving the minimum, which is useful
// to align likelihood values from different conventions.
type Constant struct {
	value float64
	diags *domain.Diagnostics
}

var _ ports.Cost = (*Constant)(nil)

// NewConstant creates a constant cost term.
func NewConstant(value float64) *Constant {
	return &Constant{value: value, diags: &domain.Diagnostics{}}
}

// Parameters returns the empty parameter set.
func (c *Constant) Parameters() domain.ParameterSet { return domain.ParameterSet{} }

// NData returns zero; a constant carries no data.
func (c *Constant) NData() float64 { return 0 }

// ErrorDef returns the least-squares convention.
func (c *Constant) ErrorDef() float64 { return ports.ErrorDefLeastSquares }

// Diagnostics returns the term's recorder.
func (c *Constant) Diagnostics() *domain.Diagnostics { return c.diags }

// Value returns the constant.
func (c *Constant) Value() float64 { return c.value }

// Eval returns the constant regardless of params.
func (c *Constant) Eval(params []float64) (float64, error) {
	if len(params) != 0 {
		return 0, domain.NewConfigError("params",
			"expected 0 parameter values, got %d", len(params))
	}
	return c.value, nil
}

// HasInfiniteData reports whether any term contributes an unbinned
// (infinite) data count, in which case reduced-chi-square style
// goodness-of-fit summaries are unavailable.
func (s *CostSum) HasInfiniteData() bool {
	return math.IsInf(s.NData(), 1)
}
