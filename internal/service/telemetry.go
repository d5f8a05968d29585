package service

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/MACHINE-IT/qbuydot-backend/internal/service"

// Telemetry holds the tracer and counters shared by the services.
type Telemetry struct {
	tracer    trace.Tracer
	checkouts metric.Int64Counter
	orders    metric.Int64Counter
	failures  metric.Int64Counter
}

// NewTelemetry creates service instruments from the given providers.
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	meter := mp.Meter(instrumentationName)

	checkouts, err := meter.Int64Counter("storefront.checkouts",
		metric.WithDescription("Committed checkouts"))
	if err != nil {
		return nil, errors.Wrap(err, "checkouts counter")
	}
	orders, err := meter.Int64Counter("storefront.orders",
		metric.WithDescription("Created orders by source"))
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	failures, err := meter.Int64Counter("storefront.operation.failures",
		metric.WithDescription("Failed service operations by kind"))
	if err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}

	return &Telemetry{
		tracer:    tp.Tracer(instrumentationName),
		checkouts: checkouts,
		orders:    orders,
		failures:  failures,
	}, nil
}

// NopTelemetry returns Telemetry that records nothing.
func NopTelemetry() *Telemetry {
	t, _ := NewTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	return t
}

func (t *Telemetry) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

// end closes span, recording err on it and in the failures counter.
func (t *Telemetry) end(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		kind := kindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		t.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("kind", kind),
		))
	}
	span.End()
}
