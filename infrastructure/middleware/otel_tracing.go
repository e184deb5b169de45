package middleware

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
)

var _ ports.Cost = (*TracedCost)(nil)

// TracedCost decorates a cost with OpenTelemetry spans. Every Eval
// produces one span carrying the cost name, parameter count, and the
// resulting value, making slow or degenerate evaluations visible in a
// trace of the surrounding fit.
type TracedCost struct {
	next ports.Cost
	name string
}

// NewTracedCost creates a tracing decorator around the given cost.
func NewTracedCost(next ports.Cost, name string) *TracedCost {
	if next == nil {
		panic("tracing middleware: next cost is required")
	}
	if name == "" {
		panic("tracing middleware: name is required")
	}
	return &TracedCost{next: next, name: name}
}

// Name returns the span label of this instance.
func (tc *TracedCost) Name() string { return tc.name }

// Unwrap returns the decorated cost.
func (tc *TracedCost) Unwrap() ports.Cost { return tc.next }

// Parameters delegates to the wrapped cost.
func (tc *TracedCost) Parameters() domain.ParameterSet { return tc.next.Parameters() }

// NData delegates to the wrapped cost.
func (tc *TracedCost) NData() float64 { return tc.next.NData() }

// ErrorDef delegates to the wrapped cost.
func (tc *TracedCost) ErrorDef() float64 { return tc.next.ErrorDef() }

// Diagnostics delegates to the wrapped cost.
func (tc *TracedCost) Diagnostics() *domain.Diagnostics { return tc.next.Diagnostics() }

// Eval evaluates the wrapped cost inside a span. Contract violations
// are recorded as span errors; degenerate values (NaN, Inf) are flagged
// through an event since they are legal but usually unintended.
func (tc *TracedCost) Eval(params []float64) (float64, error) {
	tracer := otel.Tracer("fitcost")
	_, span := tracer.Start(context.Background(), "Cost.Eval")
	defer span.End()

	span.SetAttributes(
		attribute.String("cost.name", tc.name),
		attribute.Int("cost.parameter_count", len(params)),
		attribute.Float64("cost.errordef", tc.next.ErrorDef()),
	)

	v, err := tc.next.Eval(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return v, err
	}

	span.SetAttributes(attribute.Float64("cost.value", v))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		span.AddEvent("cost.degenerate_value", trace.WithAttributes(
			attribute.Float64("cost.value", v),
		))
	}
	span.SetStatus(codes.Ok, "cost evaluated")
	return v, nil
}
