// Package server provides the MCP server context and the HTTP side of the
// marvin-mcp server.
//
// # Key Components
//
// ServerContext carries what every tool handler needs: the shared Amazing
// Marvin client, the response limit, the clock, and the optional metrics
// and audit recorders.
//
// HTTPServer serves the stateless streamable HTTP transport on /mcp, with
// health endpoints next to it. Each request supplies its own API token via
// the X-API-Token header, an Authorization Bearer token, or the api_token
// query parameter. CredentialsFromRequest extracts it and HTTPContextFunc
// attaches it to the request context. Tokens are never stored.
//
// RateLimiter applies a per-IP token bucket to the MCP endpoint.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
