// Package tracing installs the OpenTelemetry tracer provider.
package tracing

import (
    "context"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
    "go.opentelemetry.io/otel/propagation"
    "go.opentelemetry.io/otel/sdk/resource"
    tracesdk "go.opentelemetry.io/otel/sdk/trace"
    "go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation scope used by the services.
const Name = "github.com/iliyamo/bookable"

// Tracer returns the tracer of the global provider.  Until Setup installs
// an exporter it is a no-op.
func Tracer() trace.Tracer {
    return otel.Tracer(Name)
}

// Setup installs a batching OTLP/HTTP exporter for endpoint.  An empty
// endpoint leaves the global no-op provider in place.  The returned
// function flushes and stops the provider.
func Setup(ctx context.Context, endpoint, service string) (func(context.Context) error, error) {
    if endpoint == "" {
        return func(context.Context) error { return nil }, nil
    }
    exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
    if err != nil {
        return nil, err
    }
    tp := tracesdk.NewTracerProvider(
        tracesdk.WithBatcher(exp),
        tracesdk.WithResource(resource.NewSchemaless(
            attribute.String("service.name", service),
        )),
    )
    otel.SetTracerProvider(tp)
    otel.SetTextMapPropagator(propagation.TraceContext{})
    return tp.Shutdown, nil
}
