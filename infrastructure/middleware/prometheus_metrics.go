// Package middleware provides cross-cutting concerns for cost
// evaluation: Prometheus metrics and OpenTelemetry tracing decorators
// that wrap any ports.Cost without changing its value.
package middleware

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

// EvalMetrics holds the Prometheus instruments shared by all
// instrumented costs. One instance is created per registry; individual
// costs are distinguished through the "cost" label.
type EvalMetrics struct {
	evalTotal    *prometheus.CounterVec
	evalDuration *prometheus.HistogramVec
	lastValue    *prometheus.GaugeVec
	activeData   *prometheus.GaugeVec
}

// NewEvalMetrics creates the evaluation metrics and registers them with
// the given registerer. Pass prometheus.DefaultRegisterer for the
// process-wide registry or a private registry in tests.
func NewEvalMetrics(reg prometheus.Registerer) *EvalMetrics {
	factory := promauto.With(reg)
	return &EvalMetrics{
		evalTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cost_evaluations_total",
				Help: "Total number of cost function evaluations.",
			},
			[]string{"cost", "status"},
		),
		evalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cost_evaluation_duration_seconds",
				Help:    "Wall time of a single cost function evaluation.",
				Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
			},
			[]string{"cost"},
		),
		lastValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cost_last_value",
				Help: "Value of the most recent cost function evaluation.",
			},
			[]string{"cost"},
		),
		activeData: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cost_active_data_points",
				Help: "Number of data points entering the cost after masking.",
			},
			[]string{"cost"},
		),
	}
}

// Instrument wraps a cost so every evaluation is counted, timed, and
// its value exported, labeled with the given cost name.
func (m *EvalMetrics) Instrument(name string, next ports.Cost) *InstrumentedCost {
	if next == nil {
		panic("metrics middleware: next cost is required")
	}
	if name == "" {
		panic("metrics middleware: name is required")
	}
	return &InstrumentedCost{metrics: m, name: name, next: next}
}

var _ ports.Cost = (*InstrumentedCost)(nil)

// InstrumentedCost decorates a cost with Prometheus metrics. It is as
// thread-safe as the wrapped cost.
type InstrumentedCost struct {
	metrics *EvalMetrics
	name    string
	next    ports.Cost
}

// Name returns the metric label of this instance.
func (c *InstrumentedCost) Name() string { return c.name }

// Unwrap returns the decorated cost.
func (c *InstrumentedCost) Unwrap() ports.Cost { return c.next }

// Parameters delegates to the wrapped cost.
func (c *InstrumentedCost) Parameters() domain.ParameterSet { return c.next.Parameters() }

// NData delegates to the wrapped cost.
func (c *InstrumentedCost) NData() float64 { return c.next.NData() }

// ErrorDef delegates to the wrapped cost.
func (c *InstrumentedCost) ErrorDef() float64 { return c.next.ErrorDef() }

// Diagnostics delegates to the wrapped cost.
func (c *InstrumentedCost) Diagnostics() *domain.Diagnostics { return c.next.Diagnostics() }

// Eval evaluates the wrapped cost, recording the duration, the outcome
// status (ok, invalid, or error), and the resulting value.
func (c *InstrumentedCost) Eval(params []float64) (float64, error) {
	start := time.Now()
	v, err := c.next.Eval(params)
	c.metrics.evalDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.evalTotal.WithLabelValues(c.name, "error").Inc()
	case math.IsNaN(v) || math.IsInf(v, 0):
		// Degenerate values are legal, but worth watching: a minimizer
		// stuck in an invalid region evaluates them repeatedly.
		c.metrics.evalTotal.WithLabelValues(c.name, "invalid").Inc()
	default:
		c.metrics.evalTotal.WithLabelValues(c.name, "ok").Inc()
		c.metrics.lastValue.WithLabelValues(c.name).Set(v)
	}
	if n := c.next.NData(); !math.IsInf(n, 1) {
		c.metrics.activeData.WithLabelValues(c.name).Set(n)
	}
	return v, err
}
