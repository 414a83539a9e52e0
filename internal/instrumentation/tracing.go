package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the marvin-mcp package.
const TracerName = "github.com/teemow/marvin-mcp"

// Span attribute keys.
const (
	SpanAttrTool       = "mcp.tool"
	SpanAttrFormat     = "mcp.response_format"
	SpanAttrTruncated  = "mcp.truncated"
	SpanAttrReadOnly   = "mcp.read_only"
	SpanAttrSession    = "mcp.session"
	SpanAttrMethod     = "marvin.method"
	SpanAttrEndpoint   = "marvin.endpoint"
	SpanAttrRequestID  = "marvin.request_id"
	SpanAttrErrorKind  = "marvin.error_kind"
	SpanAttrResourceID = "marvin.item_id"
)

// SpanAttributeBuilder helps construct span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithSession adds the session fingerprint, if any.
func (b *SpanAttributeBuilder) WithSession(session string) *SpanAttributeBuilder {
	if session != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrSession, session))
	}
	return b
}

// WithItem adds the upstream item id, if any.
func (b *SpanAttributeBuilder) WithItem(itemID string) *SpanAttributeBuilder {
	if itemID != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceID, itemID))
	}
	return b
}

// WithReadOnly adds the read-only indicator attribute.
func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller must end the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartUpstreamSpan starts a client span for one Amazing Marvin API call,
// named after the endpoint, e.g. "marvin./todayItems".
func StartUpstreamSpan(ctx context.Context, method, endpoint string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		attribute.String(SpanAttrMethod, method),
		attribute.String(SpanAttrEndpoint, NormalizeEndpoint(endpoint)),
	}, attrs...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "marvin."+NormalizeEndpoint(endpoint),
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on the span and marks it failed.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
