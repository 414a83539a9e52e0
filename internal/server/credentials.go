package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/marvin-mcp/internal/logging"
	"github.com/teemow/marvin-mcp/internal/marvin"
)

// Query parameters accepted as a last resort for clients that cannot set headers.
const (
	QueryAPIToken    = "api_token"
	QueryAPITokenAlt = "apiToken"
)

// CredentialsFromRequest extracts the caller's Amazing Marvin token.
//
// Sources, in order: the X-API-Token header, an Authorization Bearer token,
// then the api_token or apiToken query parameter.
func CredentialsFromRequest(r *http.Request) (marvin.Credentials, bool) {
	if token := strings.TrimSpace(r.Header.Get(marvin.HeaderAPIToken)); token != "" {
		return marvin.Credentials{APIToken: token}, true
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return marvin.Credentials{APIToken: token}, true
			}
		}
	}

	query := r.URL.Query()
	for _, key := range []string{QueryAPIToken, QueryAPITokenAlt} {
		if token := strings.TrimSpace(query.Get(key)); token != "" {
			return marvin.Credentials{APIToken: token}, true
		}
	}

	return marvin.Credentials{}, false
}

// HTTPContextFunc attaches request credentials to the MCP request context.
// A request without a token still proceeds; tools report the missing token.
func HTTPContextFunc(logger *slog.Logger) mcpserver.HTTPContextFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, r *http.Request) context.Context {
		creds, ok := CredentialsFromRequest(r)
		if !ok {
			logger.Debug("request carries no api token", slog.String("path", r.URL.Path))
			return ctx
		}
		logger.Debug("request credentials attached",
			logging.Session(creds.Fingerprint()),
			slog.String("token", logging.SanitizeToken(creds.APIToken)))
		return marvin.WithCredentials(ctx, creds)
	}
}

// StdioContextFunc attaches a fixed token to every stdio request context.
// An empty token leaves the context untouched.
func StdioContextFunc(token string) mcpserver.StdioContextFunc {
	creds := marvin.Credentials{APIToken: strings.TrimSpace(token)}
	return func(ctx context.Context) context.Context {
		if creds.APIToken == "" {
			return ctx
		}
		return marvin.WithCredentials(ctx, creds)
	}
}
