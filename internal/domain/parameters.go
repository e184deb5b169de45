// Package domain contains pure, dependency-free domain models for the
// cost-function library: parameter sets, histograms, the error taxonomy,
// and the structured diagnostics channel shared by all cost components.
package domain

import "math"

// Parameter describes a single free parameter of a model or cost:
// a unique name plus an optional bound interval. Unbounded sides are
// represented as -Inf / +Inf so the zero-cost common case needs no
// pointer juggling.
type Parameter struct {
	// Name is the unique identifier of the parameter within a cost.
	Name string

	// Lower is the lower bound, or math.Inf(-1) when unbounded below.
	Lower float64

	// Upper is the upper bound, or math.Inf(1) when unbounded above.
	Upper float64
}

// NewParameter creates an unbounded parameter with the given name.
func NewParameter(name string) Parameter {
	return Parameter{Name: name, Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// BoundedParameter creates a parameter restricted to [lower, upper].
func BoundedParameter(name string, lower, upper float64) Parameter {
	return Parameter{Name: name, Lower: lower, Upper: upper}
}

// Bounded reports whether the parameter carries a finite bound on
// either side.
func (p Parameter) Bounded() bool {
	return !math.IsInf(p.Lower, -1) || !math.IsInf(p.Upper, 1)
}

// ParameterSet is an ordered collection of uniquely named parameters.
// Insertion order from the first encountered definition is preserved;
// adding a name that is already present is a no-op (first occurrence
// wins). This mirrors how an external describe collaborator derives the
// parameter vector for a minimizer: position matters, duplicates merge.
type ParameterSet struct {
	params []Parameter
	index  map[string]int
}

// NewParameterSet creates a set of unbounded parameters from names,
// dropping duplicates while keeping first-seen order.
func NewParameterSet(names ...string) ParameterSet {
	s := ParameterSet{index: make(map[string]int, len(names))}
	for _, n := range names {
		s.Add(NewParameter(n))
	}
	return s
}

// ParameterSetOf creates a set from fully specified parameters,
// dropping duplicates while keeping first-seen order.
func ParameterSetOf(params ...Parameter) ParameterSet {
	s := ParameterSet{index: make(map[string]int, len(params))}
	for _, p := range params {
		s.Add(p)
	}
	return s
}

// Add appends p unless a parameter with the same name exists.
// It reports whether the parameter was inserted.
func (s *ParameterSet) Add(p Parameter) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[p.Name]; ok {
		return false
	}
	s.index[p.Name] = len(s.params)
	s.params = append(s.params, p)
	return true
}

// Merge returns a new set holding the parameters of s followed by the
// parameters of other that s does not already contain. Neither input
// is modified.
func (s ParameterSet) Merge(other ParameterSet) ParameterSet {
	out := ParameterSetOf(s.params...)
	for _, p := range other.params {
		out.Add(p)
	}
	return out
}

// WithPrefix returns a copy of the set with every name prefixed,
// used to namespace the free parameters of per-component models.
func (s ParameterSet) WithPrefix(prefix string) ParameterSet {
	out := ParameterSet{index: make(map[string]int, len(s.params))}
	for _, p := range s.params {
		p.Name = prefix + p.Name
		out.Add(p)
	}
	return out
}

// Len returns the number of parameters in the set.
func (s ParameterSet) Len() int { return len(s.params) }

// At returns the parameter at position i.
func (s ParameterSet) At(i int) Parameter { return s.params[i] }

// Index returns the position of the named parameter, or -1.
func (s ParameterSet) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the named parameter is present.
func (s ParameterSet) Has(name string) bool { return s.Index(name) >= 0 }

// Names returns the parameter names in order.
func (s ParameterSet) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}
