// Package tracing wires optional OpenTelemetry tracing the same way the
// teacher's gateway does (gateway/gateway.go wraps its subgraph HTTP client
// with otelhttp.NewTransport when OpentelemetrySetting.TracingSetting.Enable
// is set; server/gateway.go calls out to a tracer-provider initializer
// before serving). Here the equivalent collaborator is the introspection
// HTTP client (one of spec §1's out-of-scope transport collaborators),
// optionally traced; the registry-fetch client is not instrumented.
package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Shutdown flushes and stops the tracer provider installed by Setup.
type Shutdown func(context.Context) error

// noopShutdown is returned when tracing is disabled, so callers can defer
// shutdown() unconditionally.
func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider exporting spans to an OTLP/HTTP
// collector at endpoint. When enable is false it installs nothing and
// returns a no-op shutdown, mirroring the teacher's
// "Opentelemetry.TracingSetting.Enable" config gate.
func Setup(ctx context.Context, serviceName, endpoint string, enable bool) (Shutdown, error) {
	if !enable {
		return noopShutdown, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// InstrumentClient wraps client's transport with otelhttp when enable is
// set, exactly the pattern gateway/gateway.go uses for its subgraph HTTP
// client (httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)).
func InstrumentClient(client *http.Client, enable bool) *http.Client {
	if !enable {
		return client
	}
	if client == nil {
		client = &http.Client{}
	}
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(transport)
	return client
}
