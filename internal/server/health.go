package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves the Kubernetes probe endpoints of the hosted server.
//
// The Amazing Marvin API is never called from a probe: there is no
// server-wide token to call it with, and an upstream outage must not take
// the MCP endpoint out of rotation.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	version       string
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil in tests.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
	}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. when draining before shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks,omitempty"`
	Uptime        string            `json:"uptime"`
	Version       string            `json:"version,omitempty"`
	Upstream      string            `json:"upstream,omitempty"`
	ResponseLimit int               `json:"response_limit,omitempty"`
}

// evaluate returns the overall status and the individual checks.
func (h *HealthChecker) evaluate() (string, map[string]string) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	status := healthStatusOK

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		status = healthStatusNotReady
	}
	if h.serverContext != nil && h.serverContext.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		if status == healthStatusOK {
			status = healthStatusShuttingDown
		}
	}
	return status, checks
}

func writeHealth(w http.ResponseWriter, status string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == healthStatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It only says the process is up.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, healthStatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, checks := h.evaluate()
		if status != healthStatusOK {
			// Readiness has a single failure state for load balancers.
			status = healthStatusNotReady
		}
		writeHealth(w, status, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed with the upstream base URL
// and the configured response limit.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, checks := h.evaluate()
		response := DetailedHealthResponse{
			Status:  status,
			Checks:  checks,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			Version: h.version,
		}
		if h.serverContext != nil {
			response.Upstream = h.serverContext.MarvinClient().BaseURL()
			response.ResponseLimit = h.serverContext.ResponseLimit()
		}
		writeHealth(w, status, response)
	})
}

// RegisterHealthEndpoints mounts the probe endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
