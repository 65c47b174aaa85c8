package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for autosort tracing.
const tracerName = "github.com/Spiderbuttons/autosort"

// Tracing returns middleware that wraps sort execution in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// Span attributes include: autosort.sort.id, autosort.site,
// autosort.containers. On error, the span status is set to codes.Error
// with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		ctx, span := tracer.Start(ctx, "autosort.sort.execute",
			trace.WithAttributes(
				attribute.String("autosort.sort.id", op.SortID.String()),
				attribute.String("autosort.site", op.Site),
				attribute.Int("autosort.containers", op.Containers),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
