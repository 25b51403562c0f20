package framework

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope used for every span in this module.
const TracerName = "github.com/lexcodex/orchestrate"

// TracerOrNoop returns t, or a no-op tracer when t is nil.
func TracerOrNoop(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return noop.NewTracerProvider().Tracer(TracerName)
}

// EndSpan records the run outcome on span and ends it.
func EndSpan(span trace.Span, result *RunResult, err error) {
	if result != nil {
		span.SetAttributes(
			attribute.Int("run.iterations", result.Iterations),
			attribute.Bool("run.success", result.Success),
		)
		if result.Approach != "" {
			span.SetAttributes(attribute.String("run.approach", string(result.Approach)))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
