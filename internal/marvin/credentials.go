package marvin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// MinTokenLength is the shortest API token the upstream ever issues.
const MinTokenLength = 10

var (
	// ErrMissingCredentials is returned when no API token is attached to the context.
	ErrMissingCredentials = errors.New("no Amazing Marvin API token provided")

	// ErrInvalidCredentials is returned when the attached API token is malformed.
	ErrInvalidCredentials = errors.New("Amazing Marvin API token is malformed")
)

// Credentials identify one caller session against the upstream API.
// They live only in a request context and are never stored by the server.
type Credentials struct {
	APIToken string
}

// Validate reports whether the credentials can be sent upstream.
func (c Credentials) Validate() error {
	token := strings.TrimSpace(c.APIToken)
	if token == "" {
		return ErrMissingCredentials
	}
	if len(token) < MinTokenLength {
		return ErrInvalidCredentials
	}
	return nil
}

// Fingerprint returns a short, non-reversible identifier for the token
// that is safe to put in logs and audit records.
func (c Credentials) Fingerprint() string {
	if c.APIToken == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.APIToken))
	return "session:" + hex.EncodeToString(sum[:6])
}

type credentialsKey struct{}

// WithCredentials returns a copy of ctx carrying creds.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credentials attached to ctx, if any.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	if !ok || creds.APIToken == "" {
		return Credentials{}, false
	}
	return creds, true
}
