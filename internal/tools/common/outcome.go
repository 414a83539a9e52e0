package common

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/marvin-mcp/internal/marvin"
)

// Outcome collects facts a tool handler learns while running that the
// instrumentation wrapper reports afterwards.
type Outcome struct {
	mu        sync.Mutex
	errorKind string
	truncated bool
}

type outcomeKey struct{}

// WithOutcome returns a copy of ctx carrying a fresh Outcome.
func WithOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

// OutcomeFromContext returns the Outcome in ctx, or nil.
func OutcomeFromContext(ctx context.Context) *Outcome {
	o, _ := ctx.Value(outcomeKey{}).(*Outcome)
	return o
}

// ErrorKind returns the recorded error kind, or "".
func (o *Outcome) ErrorKind() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errorKind
}

// Truncated reports whether the response was cut to the response limit.
func (o *Outcome) Truncated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.truncated
}

// MarkTruncated records that the response was cut. No-op without an Outcome.
func MarkTruncated(ctx context.Context) {
	if o := OutcomeFromContext(ctx); o != nil {
		o.mu.Lock()
		o.truncated = true
		o.mu.Unlock()
	}
}

func recordKind(ctx context.Context, kind marvin.ErrorKind) {
	if o := OutcomeFromContext(ctx); o != nil {
		o.mu.Lock()
		o.errorKind = kind.String()
		o.mu.Unlock()
	}
}

// ToolError classifies err and returns it as an MCP error result.
// Upstream failures are reported to the caller as tool results, never as
// protocol errors.
func ToolError(ctx context.Context, err error) *mcp.CallToolResult {
	classified := marvin.Classify(err)
	recordKind(ctx, classified.Kind)
	return mcp.NewToolResultError(classified.Message)
}

// InvalidArgument returns an MCP error result for a rejected argument.
// No upstream call is made for invalid input.
func InvalidArgument(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: Invalid input - " + msg)
}
