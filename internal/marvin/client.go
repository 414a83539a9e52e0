package marvin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/marvin-mcp/internal/instrumentation"
	"github.com/teemow/marvin-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the production Amazing Marvin API.
	DefaultBaseURL = "https://serv.amazingmarvin.com/api"

	// DefaultTimeout bounds every upstream round trip.
	DefaultTimeout = 30 * time.Second

	// HeaderAPIToken carries the caller's credential upstream.
	HeaderAPIToken = "X-API-Token"

	headerRequestID = "X-Request-Id"

	maxResponseBody = 10 << 20
	maxErrorBody    = 512
)

// Recorder receives one observation per upstream round trip.
// statusCode is 0 when no response was received.
type Recorder interface {
	RecordUpstreamRequest(ctx context.Context, method, endpoint string, statusCode int, duration time.Duration)
}

// Request describes a single upstream call.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
}

func (r Request) op() string {
	return r.Method + " " + r.Endpoint
}

func (r Request) validate() error {
	if r.Endpoint == "" || !strings.HasPrefix(r.Endpoint, "/") {
		return fmt.Errorf("%w: endpoint %q must start with /", ErrInvalidRequest, r.Endpoint)
	}
	switch r.Method {
	case http.MethodGet:
		if r.Body != nil {
			return fmt.Errorf("%w: GET %s cannot carry a body", ErrInvalidRequest, r.Endpoint)
		}
	case http.MethodPost:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, r.Method)
	}
	return nil
}

// ClientConfig holds configuration for the upstream client.
type ClientConfig struct {
	// BaseURL overrides DefaultBaseURL, mostly for tests and proxies.
	BaseURL string

	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for all calls. Defaults to an otelhttp-instrumented client.
	HTTPClient *http.Client

	// Logger receives debug logs for each call. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics Recorder
}

// Client executes requests against the Amazing Marvin API.
// It holds no per-caller state; the credential is read from each call's context.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    Recorder
}

// NewClient creates a new Client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
		logger:     config.Logger,
		metrics:    config.Metrics,
	}
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Execute performs exactly one round trip and returns the raw response body.
//
// Non-2xx responses are returned as *StatusError and transport failures as
// *RequestError. Use Classify to turn either into user guidance.
func (c *Client) Execute(ctx context.Context, req Request) ([]byte, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	creds, ok := CredentialsFromContext(ctx)
	if !ok {
		return nil, ErrMissingCredentials
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	ctx, span := instrumentation.StartUpstreamSpan(ctx, req.Method, req.Endpoint,
		attribute.String(instrumentation.SpanAttrRequestID, requestID))
	defer span.End()

	logger := c.logger.With(
		logging.Endpoint(req.Endpoint),
		logging.RequestID(requestID),
		logging.Session(creds.Fingerprint()),
	)

	httpReq, err := c.newHTTPRequest(ctx, req, creds, requestID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, &RequestError{Op: req.op(), Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		duration := time.Since(start)
		c.record(ctx, req, 0, duration)
		instrumentation.SetSpanError(span, err)
		logger.Debug("upstream request failed", logging.Err(err), slog.Duration(logging.KeyDuration, duration))
		return nil, &RequestError{Op: req.op(), Err: err}
	}
	defer resp.Body.Close()

	// One byte past the limit tells a full body from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	duration := time.Since(start)
	c.record(ctx, req, resp.StatusCode, duration)
	logger.Debug("upstream request completed",
		slog.Int("status_code", resp.StatusCode),
		slog.Duration(logging.KeyDuration, duration))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, &RequestError{Op: req.op(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Endpoint:   req.Endpoint,
			Body:       truncateBody(body),
		}
		instrumentation.SetSpanError(span, statusErr)
		return nil, statusErr
	}

	if len(body) > maxResponseBody {
		err := fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, maxResponseBody)
		instrumentation.SetSpanError(span, err)
		return nil, &RequestError{Op: req.op(), Err: err}
	}

	instrumentation.SetSpanSuccess(span)
	return body, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request, creds Credentials, requestID string) (*http.Request, error) {
	target := c.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set(HeaderAPIToken, strings.TrimSpace(creds.APIToken))
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (c *Client) record(ctx context.Context, req Request, statusCode int, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamRequest(ctx, req.Method, req.Endpoint, statusCode, duration)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
