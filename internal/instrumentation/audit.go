package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for audit logging.
//
// Session is a fingerprint of the caller's API token, never the token itself.
type ToolInvocation struct {
	Tool    string
	Session string

	// Upstream target
	ServiceName string
	Endpoint    string

	// Argument names supplied by the caller; values are never recorded.
	Arguments []string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	ErrorKind string
	Truncated bool

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSession sets the caller session fingerprint.
func (ti *ToolInvocation) WithSession(session string) *ToolInvocation {
	ti.Session = session
	return ti
}

// WithService sets the upstream service and endpoint.
func (ti *ToolInvocation) WithService(serviceName, endpoint string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Endpoint = endpoint
	return ti
}

// WithArguments records the sorted argument names of args.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	ti.Arguments = names
	return ti
}

// WithSpanContext copies trace and span ids from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteWithKind marks the invocation as failed with a classified error kind.
func (ti *ToolInvocation) CompleteWithKind(kind string) *ToolInvocation {
	ti.ErrorKind = kind
	return ti.Complete(false, nil)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation.
func (ti *ToolInvocation) LogAttrs(includeArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Session != "" {
		attrs = append(attrs, slog.String("session", ti.Session))
	}
	if ti.ServiceName != "" {
		attrs = append(attrs, slog.String("service", ti.ServiceName))
	}
	if ti.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", ti.Endpoint))
	}
	if includeArguments && len(ti.Arguments) > 0 {
		attrs = append(attrs, slog.Any("arguments", ti.Arguments))
	}
	if ti.Truncated {
		attrs = append(attrs, slog.Bool("truncated", true))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, slog.String("error_kind", ti.ErrorKind))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	enabled          bool
	includeArguments bool
}

// NewAuditLogger creates a new AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		enabled:          config.Enabled,
		includeArguments: config.IncludeArguments,
	}
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs ti as "tool_executed" or "tool_failed".
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeArguments)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
