package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced cache operation.
type SpanOperation string

// Cache span operations
const (
	SpanOperationCacheGet        SpanOperation = "cache.get"
	SpanOperationCacheSet        SpanOperation = "cache.set"
	SpanOperationCacheInvalidate SpanOperation = "cache.invalidate"
)

// StartRemoteSpan creates a client span for one remote resource operation,
// named "<operation> <resource>".
func StartRemoteSpan(ctx context.Context, resource, operation string, opts ...RemoteSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("freddy/rest")

	spanOpts := &remoteSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("crud.resource", resource),
			attribute.String("crud.operation", operation),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", operation, resource), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// RemoteSpanOption configures a remote span.
type RemoteSpanOption func(*remoteSpanOptions)

type remoteSpanOptions struct {
	attributes []attribute.KeyValue
}

// WithHTTPMethod sets the request method.
func WithHTTPMethod(method string) RemoteSpanOption {
	return func(opts *remoteSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("http.method", method))
	}
}

// WithHTTPURL sets the request URL.
func WithHTTPURL(url string) RemoteSpanOption {
	return func(opts *remoteSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("http.url", url))
	}
}

// SetHTTPStatus records the response status on span.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
}

// InjectHeaders propagates the span context in ctx into outgoing headers.
func InjectHeaders(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}

// StartCacheSpan creates a span for a query cache operation.
func StartCacheSpan(ctx context.Context, operation SpanOperation, opts ...CacheSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("freddy/query")

	spanOpts := &cacheSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("cache.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("CACHE %s", operation)
	if spanOpts.key != "" {
		spanName = fmt.Sprintf("CACHE %s %s", operation, spanOpts.key)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// CacheSpanOption configures a cache span.
type CacheSpanOption func(*cacheSpanOptions)

type cacheSpanOptions struct {
	key        string
	attributes []attribute.KeyValue
}

// WithCacheSystem sets the cache backend (e.g., "redis", "inmemory").
func WithCacheSystem(system string) CacheSpanOption {
	return func(opts *cacheSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("cache.system", system))
	}
}

// WithCacheKey sets the cache key.
func WithCacheKey(key string) CacheSpanOption {
	return func(opts *cacheSpanOptions) {
		opts.key = key
		opts.attributes = append(opts.attributes, attribute.String("cache.key", key))
	}
}

// SetCacheOutcome records how a lookup was served (hit, miss, stale, shared).
func SetCacheOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("cache.outcome", outcome))
}

// RecordError records an error in the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
