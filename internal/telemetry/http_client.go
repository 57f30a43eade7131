package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewInstrumentedTransport wraps base (http.DefaultTransport when nil) so
// every outbound request gets a client span.
func NewInstrumentedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	)
}

// NewInstrumentedHTTPClient is used for Google userinfo and Elasticsearch
func NewInstrumentedHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewInstrumentedTransport(nil),
	}
}

// ExternalCall describes a call to S3, SES, Elasticsearch or Google
type ExternalCall struct {
	Service    string
	Operation  string
	ResourceID string
	CacheHit   bool
}

// TraceExternalCall starts a client span named service.operation
func TraceExternalCall(ctx context.Context, call ExternalCall) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("external-api").Start(ctx,
		fmt.Sprintf("%s.%s", call.Service, call.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", call.Service),
			attribute.String("external.operation", call.Operation),
		),
	)
	if call.ResourceID != "" {
		span.SetAttributes(attribute.String("external.resource_id", call.ResourceID))
	}
	if call.CacheHit {
		span.SetAttributes(attribute.Bool("external.cache_hit", true))
	}
	return ctx, span
}

// EndSpan records err (if any) and ends span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartSpan starts an internal span for domain work such as computing
// suggestions or sweeping expired stories.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("unify").Start(ctx, name, trace.WithAttributes(attrs...))
}
