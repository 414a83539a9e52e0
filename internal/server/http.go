package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/marvin-mcp/internal/instrumentation"
	"github.com/teemow/marvin-mcp/internal/logging"
)

// MCPEndpointPath is where the streamable HTTP transport is served.
const MCPEndpointPath = "/mcp"

// knownPaths bounds the path label of HTTP metrics.
var knownPaths = map[string]bool{
	MCPEndpointPath:     true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
}

// HTTPConfig configures the streamable HTTP server.
type HTTPConfig struct {
	Addr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit  float64
	RateBurst  int
	TrustProxy bool

	Logger *slog.Logger
}

// HTTPServer serves the MCP streamable HTTP transport and health endpoints.
//
// The transport is stateless: every request carries its own credentials and
// nothing is kept between requests.
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	config    HTTPConfig
	health    *HealthChecker
	logger    *slog.Logger

	mu         sync.Mutex
	metrics    *instrumentation.Metrics
	limiter    *RateLimiter
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates a new HTTP server. health may be nil.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, health *HealthChecker, config HTTPConfig) (*HTTPServer, error) {
	if mcpSrv == nil {
		return nil, errors.New("mcp server is required")
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, errors.New("both TLS certificate and key files must be provided together")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &HTTPServer{
		mcpServer: mcpSrv,
		config:    config,
		health:    health,
		logger:    config.Logger,
		addr:      config.Addr,
	}
	if config.RateLimit > 0 {
		s.limiter = NewRateLimiter(config.RateLimit, config.RateBurst, config.TrustProxy,
			logging.Component(config.Logger, "ratelimit"))
	}
	return s, nil
}

// SetMetrics enables HTTP request metrics.
func (s *HTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// TLSEnabled reports whether the server serves HTTPS.
func (s *HTTPServer) TLSEnabled() bool {
	return s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
}

// Handler returns the complete HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(HTTPContextFunc(s.logger)),
	)

	var mcpHandler http.Handler = streamable
	if s.limiter != nil {
		mcpHandler = s.limiter.Middleware(mcpHandler)
	}

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, mcpHandler)
	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	handler := s.metricsMiddleware(mux)
	return otelhttp.NewHandler(handler, "marvin-mcp",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path == MCPEndpointPath
		}),
	)
}

func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		metrics := s.metrics
		s.mu.Unlock()

		if metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		m := httpsnoop.CaptureMetrics(next, w, r)
		path := r.URL.Path
		if !knownPaths[path] {
			path = "other"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, m.Code, m.Duration)
	})
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal is Start, closing ready once the listener is bound.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	if ready != nil {
		close(ready)
	}

	if s.TLSEnabled() {
		s.logger.Info("starting HTTPS server", "addr", ln.Addr().String())
		return srv.ServeTLS(ln, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Addr returns the server address; the bound address once started.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown gracefully shuts down the server and stops the rate limiter.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if s.health != nil {
		s.health.SetReady(false)
	}
	return srv.Shutdown(ctx)
}
