// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the marvin-mcp server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Amazing Marvin API Metrics:
//   - marvin_api_requests_total: Counter of upstream requests by method, endpoint, and status class
//   - marvin_api_request_duration_seconds: Histogram of upstream request durations
//   - marvin_api_errors_total: Counter of failed tool calls by tool and error kind
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//   - mcp_response_truncations_total: Counter of responses cut to the response limit
//
// Endpoint labels are normalized with NormalizeEndpoint so query strings and
// unexpected paths never create new series.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and for every
// upstream call (marvin.<endpoint>). The HTTP client and server handlers are
// wrapped with otelhttp so trace context propagates end to end.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: marvin-mcp)
//   - METRICS_DETAILED_LABELS: Add session fingerprints to tool metrics
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_ARGUMENTS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordUpstreamRequest(ctx, "GET", "/todayItems", 200, time.Since(start))
//	recorder.RecordToolInvocation(ctx, "marvin_get_todays_tasks", "success", "", time.Since(start))
package instrumentation
