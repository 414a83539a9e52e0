package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/marvin-mcp/internal/config"
	"github.com/teemow/marvin-mcp/internal/instrumentation"
	"github.com/teemow/marvin-mcp/internal/logging"
	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/resources"
	"github.com/teemow/marvin-mcp/internal/server"
	"github.com/teemow/marvin-mcp/internal/tools/marvin_tools"
)

// Environment variables read by serve in addition to config.ApplyEnv.
const (
	envConfigPath = "MARVIN_MCP_CONFIG"
	envAPIToken   = "AMAZING_MARVIN_API_TOKEN"
)

// serveOptions holds the raw serve flags. Only flags the user changed
// override the config file and environment.
type serveOptions struct {
	configPath     string
	transport      string
	httpAddr       string
	debug          bool
	apiToken       string
	apiBaseURL     string
	requestTimeout time.Duration
	responseLimit  int
	metricsEnabled bool
	metricsAddr    string
	rateLimit      float64
	rateBurst      int
	trustProxy     bool
	tlsCertFile    string
	tlsKeyFile     string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server to expose Amazing Marvin
to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default). The API token comes from
    --api-token or AMAZING_MARVIN_API_TOKEN.
  - streamable-http: Streamable HTTP transport for hosted deployments. Each
    request carries its own API token in the X-API-Token header, an
    Authorization: Bearer header, or the api_token query parameter.

Settings are layered: defaults, then the YAML file given by --config or
MARVIN_MCP_CONFIG, then environment variables, then flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, token, err := opts.resolve(cmd, os.LookupEnv)
			if err != nil {
				return err
			}
			return runServe(cfg, token)
		},
	}

	opts.bindFlags(cmd)
	return cmd
}

func (o *serveOptions) bindFlags(cmd *cobra.Command) {
	defaults := config.Default()

	cmd.Flags().StringVar(&o.configPath, "config", "", "Path to a YAML config file. Can also use MARVIN_MCP_CONFIG env var.")
	cmd.Flags().StringVar(&o.transport, "transport", defaults.Transport, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&o.httpAddr, "http-addr", defaults.HTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&o.debug, "debug", defaults.Debug, "Enable debug logging")
	cmd.Flags().StringVar(&o.apiToken, "api-token", "", "Amazing Marvin API token (stdio transport only). Can also use AMAZING_MARVIN_API_TOKEN env var.")
	cmd.Flags().StringVar(&o.apiBaseURL, "api-base-url", defaults.APIBaseURL, "Amazing Marvin API base URL. Can also use MARVIN_API_BASE_URL env var.")
	cmd.Flags().DurationVar(&o.requestTimeout, "request-timeout", defaults.RequestTimeout, "Timeout for each upstream request. Can also use MARVIN_REQUEST_TIMEOUT env var.")
	cmd.Flags().IntVar(&o.responseLimit, "response-limit", defaults.ResponseLimit, "Maximum characters in a tool response. Can also use MARVIN_RESPONSE_LIMIT env var.")

	// Metrics server
	cmd.Flags().BoolVar(&o.metricsEnabled, "metrics-enabled", defaults.Metrics.Enabled, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", defaults.Metrics.Addr, "Metrics server address. Can also use METRICS_ADDR env var.")

	// Rate limiting
	cmd.Flags().Float64Var(&o.rateLimit, "rate-limit", defaults.RateLimit.PerSecond, "Requests per second per client IP on /mcp (0 disables)")
	cmd.Flags().IntVar(&o.rateBurst, "rate-burst", defaults.RateLimit.Burst, "Burst size for the per-IP rate limit")
	cmd.Flags().BoolVar(&o.trustProxy, "trust-proxy", defaults.RateLimit.TrustProxy, "Use X-Forwarded-For / X-Real-IP to identify clients (only behind a trusted proxy)")

	// TLS/HTTPS
	cmd.Flags().StringVar(&o.tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM format). If provided with --tls-key-file, enables HTTPS. Can also use TLS_CERT_FILE env var.")
	cmd.Flags().StringVar(&o.tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM format). If provided with --tls-cert-file, enables HTTPS. Can also use TLS_KEY_FILE env var.")
}

// resolve builds the effective configuration and the stdio API token.
func (o *serveOptions) resolve(cmd *cobra.Command, lookup func(string) (string, bool)) (config.Config, string, error) {
	path := o.configPath
	if !cmd.Flags().Changed("config") {
		if v, ok := lookup(envConfigPath); ok {
			path = v
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, "", err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = o.transport
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = o.httpAddr
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("api-base-url") {
		cfg.APIBaseURL = o.apiBaseURL
	}
	if flags.Changed("request-timeout") {
		cfg.RequestTimeout = o.requestTimeout
	}
	if flags.Changed("response-limit") {
		cfg.ResponseLimit = o.responseLimit
	}
	if flags.Changed("metrics-enabled") {
		cfg.Metrics.Enabled = o.metricsEnabled
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit.PerSecond = o.rateLimit
	}
	if flags.Changed("rate-burst") {
		cfg.RateLimit.Burst = o.rateBurst
	}
	if flags.Changed("trust-proxy") {
		cfg.RateLimit.TrustProxy = o.trustProxy
	}
	if flags.Changed("tls-cert-file") {
		cfg.TLS.CertFile = o.tlsCertFile
	}
	if flags.Changed("tls-key-file") {
		cfg.TLS.KeyFile = o.tlsKeyFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}

	// The hosted transport takes credentials from each request only.
	if cfg.Transport != config.TransportStdio {
		if flags.Changed("api-token") {
			return cfg, "", errors.New("--api-token is only supported with the stdio transport; HTTP clients send their own token per request")
		}
		return cfg, "", nil
	}

	token := strings.TrimSpace(o.apiToken)
	if token == "" {
		if v, ok := lookup(envAPIToken); ok {
			token = strings.TrimSpace(v)
		}
	}
	return cfg, token, nil
}

func runServe(cfg config.Config, apiToken string) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Logs always go to stderr; stdout belongs to the stdio transport.
	logger := logging.New(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	clientConfig := marvin.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	}
	if provider.Enabled() {
		clientConfig.Metrics = provider.Metrics()
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Client:        marvin.NewClient(clientConfig),
		ResponseLimit: cfg.ResponseLimit,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	mcpSrv := newMCPServer()
	if err := registerAll(mcpSrv, serverContext); err != nil {
		return err
	}

	switch cfg.Transport {
	case config.TransportStdio:
		if apiToken == "" {
			logger.Warn("no API token configured; tools will report an authentication error",
				"hint", "set --api-token or "+envAPIToken)
		} else if err := (marvin.Credentials{APIToken: apiToken}).Validate(); err != nil {
			logger.Warn("configured API token looks malformed", logging.Err(err))
		}
		return runStdioServer(mcpSrv, apiToken)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

// newMCPServer creates the MCP server with tool and resource capabilities.
func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("marvin-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

// registerAll registers all MCP tools and resources
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Marvin tools",
			register: func() error {
				return marvin_tools.RegisterMarvinTools(mcpSrv, sc)
			},
		},
		{
			name: "Marvin resources",
			register: func() error {
				return resources.RegisterMarvinResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, apiToken string) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithStdioContextFunc(server.StdioContextFunc(apiToken))); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// startMetricsServer starts the dedicated metrics listener and waits until it
// is accepting connections.
func startMetricsServer(cfg config.MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg config.Config, provider *instrumentation.Provider, logger *slog.Logger) error {
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(cfg.Metrics, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	health := server.NewHealthChecker(sc, version)
	httpServer, err := server.NewHTTPServer(mcpSrv, health, server.HTTPConfig{
		Addr:        cfg.HTTPAddr,
		TLSCertFile: cfg.TLS.CertFile,
		TLSKeyFile:  cfg.TLS.KeyFile,
		RateLimit:   cfg.RateLimit.PerSecond,
		RateBurst:   cfg.RateLimit.Burst,
		TrustProxy:  cfg.RateLimit.TrustProxy,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	if provider.Enabled() {
		httpServer.SetMetrics(provider.Metrics())
	}

	scheme := "http"
	if httpServer.TLSEnabled() {
		scheme = "https"
	}
	fmt.Printf("Starting marvin-mcp with streamable-http transport on %s://%s\n", scheme, cfg.HTTPAddr)
	fmt.Printf("  MCP endpoint: %s\n", server.MCPEndpointPath)
	fmt.Printf("  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", cfg.Metrics.Addr)
	}
	fmt.Println("\nClients authenticate each request with their own Amazing Marvin API token")
	fmt.Println("(X-API-Token header, Authorization: Bearer, or ?api_token=).")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
