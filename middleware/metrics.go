package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for autosort metrics.
const meterName = "github.com/Spiderbuttons/autosort"

// Metrics returns middleware that records per-sort execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - autosort.sort.duration (Float64Histogram): execution time in seconds,
//     with attributes: site, status ("ok" or "error")
//   - autosort.sort.invocations (Int64Counter): total invocations,
//     with attributes: site, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"autosort.sort.duration",
		metric.WithDescription("Duration of sort execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	invocations, iErr := meter.Int64Counter(
		"autosort.sort.invocations",
		metric.WithDescription("Total number of sort invocations"),
		metric.WithUnit("{invocation}"),
	)
	_ = iErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, op *Operation, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("site", op.Site),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return err
	}
}
