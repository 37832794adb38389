// Package telemetry provides request and database tracing via
// OpenTelemetry, wired into internal/httpapi's middleware stack and
// pkg/database's query path.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustify/trustify/pkg/config"
)

// Provider wraps the OpenTelemetry TracerProvider. A disabled Provider
// still returns a valid no-op tracer, so callers never need to nil-check
// before starting a span.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// NewProvider builds a tracing provider from cfg. When disabled it
// returns a Provider backed by the global no-op tracer rather than nil,
// matching pkg/events.Publisher's "disabled is a legal no-op" shape.
func NewProvider(cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("build stdout trace exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	switch {
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SampleRate < 1:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, tracer: tp.Tracer(cfg.ServiceName)}, nil
}

// Shutdown flushes and stops the underlying TracerProvider, if one was
// created (a disabled Provider has none).
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// Tracer returns the provider's tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return otel.Tracer("")
	}
	return p.tracer
}

// HTTPMiddleware traces every request through the chi router: one span
// per request, named "METHOD /path", tagged with the response status.
func (p *Provider) HTTPMiddleware(next http.Handler) http.Handler {
	tracer := p.Tracer()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// DatabaseSpan starts a client-kind span around one pgx call, tagged
// with the operation name ("exec"/"query") and the SQL text — used by
// pkg/database to trace every query Trustify's services issue.
func (p *Provider) DatabaseSpan(ctx context.Context, operation, sql string) (context.Context, trace.Span) {
	ctx, span := p.Tracer().Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", sql),
		),
	)
	return ctx, span
}

// EndSpan records err (if any) on span and ends it. A small helper so
// every DatabaseSpan call site doesn't repeat the same four lines.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Timed measures the duration since it was called and attaches it to
// span as "duration_ms" when the returned func runs; intended for
// `defer telemetry.Timed(span)()`.
func Timed(span trace.Span) func() {
	start := time.Now()
	return func() {
		span.SetAttributes(attribute.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
}
