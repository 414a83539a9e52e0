package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/marvin-mcp/internal/instrumentation"
	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/render"
)

// Options configures a ServerContext.
type Options struct {
	// Client is the shared Amazing Marvin client. Credentials are not part
	// of the client; they travel with each request context.
	Client *marvin.Client

	// ResponseLimit caps the length of every tool response in characters.
	// Defaults to render.DefaultLimit.
	ResponseLimit int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now is the clock used to resolve "today". Defaults to time.Now.
	Now func() time.Time
}

// ServerContext holds the dependencies shared by all MCP tool handlers.
type ServerContext struct {
	ctx           context.Context
	cancel        context.CancelFunc
	client        *marvin.Client
	logger        *slog.Logger
	responseLimit int
	now           func() time.Time
	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	mu            sync.RWMutex
	shutdown      bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Client == nil {
		return nil, errors.New("marvin client is required")
	}
	if opts.ResponseLimit <= 0 {
		opts.ResponseLimit = render.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		client:        opts.Client,
		logger:        opts.Logger,
		responseLimit: opts.ResponseLimit,
		now:           opts.Now,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// MarvinClient returns the shared Amazing Marvin client.
func (sc *ServerContext) MarvinClient() *marvin.Client {
	return sc.client
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ResponseLimit returns the maximum response length in characters.
func (sc *ServerContext) ResponseLimit() int {
	return sc.responseLimit
}

// Today returns the current date as YYYY-MM-DD in UTC.
func (sc *ServerContext) Today() string {
	return render.FormatDate(sc.now())
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
