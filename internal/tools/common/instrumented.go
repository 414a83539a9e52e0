package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/marvin-mcp/internal/instrumentation"
	"github.com/teemow/marvin-mcp/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and audit logging.
// endpoint names the upstream path the tool calls and labels the audit record.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("marvin_get_labels", marvin.EndpointLabels, sc, handler))
func InstrumentedToolHandler(toolName, endpoint string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session := SessionFromContext(ctx)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().WithSession(session).Build()...)
		defer span.End()

		ctx, outcome := WithOutcome(ctx)

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSession(session).
			WithService(instrumentation.ServiceMarvin, endpoint).
			WithArguments(request.GetArguments()).
			WithSpanContext(ctx)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		invocation.Truncated = outcome.Truncated()
		kind := outcome.ErrorKind()

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			if kind != "" {
				invocation.CompleteWithKind(kind)
			} else {
				invocation.Complete(false, nil)
			}
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		if kind != "" {
			span.SetAttributes(attributeErrorKind(kind))
		}

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, session, duration)
			if kind != "" {
				metrics.RecordUpstreamError(ctx, toolName, kind)
			}
			if invocation.Truncated {
				metrics.RecordTruncation(ctx, toolName)
			}
		}

		if auditLogger := sc.AuditLogger(); auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

func attributeErrorKind(kind string) attribute.KeyValue {
	return attribute.String(instrumentation.SpanAttrErrorKind, kind)
}
