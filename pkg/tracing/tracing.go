// Package tracing wires the runtime's adapter and netcore command-dispatch
// spans to an OpenTelemetry stdout exporter for local diagnostics. Both
// pkg/machine and pkg/netcore expose a package-level, nil-by-default
// trace.Tracer they wrap their hot paths in when set, so calling Init is
// the only thing that turns tracing on.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/coactor/machine/pkg/machine"
	"github.com/coactor/machine/pkg/netcore"
)

// Init builds a TracerProvider exporting spans to stdout, registers it as
// the global provider, and wires machine.Tracer and netcore.Tracer so
// every adapter Receive and netcore command dispatch is wrapped in a span.
// The returned shutdown func flushes and stops the exporter; call it on
// process exit.
func Init(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("tracing: build stdout exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	tracer := tp.Tracer("github.com/coactor/machine")
	machine.Tracer = tracer
	netcore.Tracer = tracer

	return tp.Shutdown, nil
}

// Tracer returns the tracer registered with the global TracerProvider,
// usable before or after Init (a no-op tracer until Init runs).
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/coactor/machine")
}
