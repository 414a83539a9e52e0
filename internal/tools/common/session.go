package common

import (
	"context"

	"github.com/teemow/marvin-mcp/internal/marvin"
)

// SessionFromContext returns the fingerprint of the caller's API token,
// or "" when the request carries none.
func SessionFromContext(ctx context.Context) string {
	creds, ok := marvin.CredentialsFromContext(ctx)
	if !ok {
		return ""
	}
	return creds.Fingerprint()
}
