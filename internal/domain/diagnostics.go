package domain

import (
	"slices"
	"sync"
)

// Severity classifies a diagnostic emitted by a cost component.
type Severity string

const (
	// SeverityPerformance flags a non-fatal but costly usage pattern,
	// such as a model evaluated point by point instead of vectorized.
	SeverityPerformance Severity = "performance"

	// SeverityDeprecation flags use of a renamed entity kept as an
	// alias for backwards compatibility.
	SeverityDeprecation Severity = "deprecation"

	// SeverityInfo carries verbose evaluation traces.
	SeverityInfo Severity = "info"
)

// Diagnostic is one structured advisory entry. Diagnostics replace a
// process-wide warnings subsystem so callers and tests can assert on
// them deterministically.
type Diagnostic struct {
	Severity Severity
	Message  string
}

// Diagnostics is an ordered, concurrency-safe recorder of advisory
// entries. Costs themselves are single-threaded, but middleware may
// read the recorder while a fit is running elsewhere.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
}

// Record appends an entry.
func (d *Diagnostics) Record(sev Severity, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, Diagnostic{Severity: sev, Message: msg})
}

// RecordOnce appends an entry unless an identical one is already
// present, so a construction-time advisory fires at most once.
func (d *Diagnostics) RecordOnce(sev Severity, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries {
		if e.Severity == sev && e.Message == msg {
			return
		}
	}
	d.entries = append(d.entries, Diagnostic{Severity: sev, Message: msg})
}

// Entries returns a copy of the recorded diagnostics in order.
func (d *Diagnostics) Entries() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.entries)
}

// Clear removes all recorded diagnostics.
func (d *Diagnostics) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
}
