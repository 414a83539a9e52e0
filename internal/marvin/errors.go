package marvin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TokenURL is where users obtain their API token.
const TokenURL = "https://app.amazingmarvin.com/pre?api="

// ErrInvalidRequest is returned by Execute for structurally invalid requests.
var ErrInvalidRequest = errors.New("invalid upstream request")

// ErrResponseTooLarge is returned when a successful response exceeds the body limit.
var ErrResponseTooLarge = errors.New("upstream response too large")

// ErrorKind is the closed set of failure categories a tool call can end in.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthInvalid
	KindNotFound
	KindRateLimited
	KindUpstreamUnavailable
	KindTimeout
)

// String returns the stable name used in metrics and logs.
func (k ErrorKind) String() string {
	switch k {
	case KindAuthInvalid:
		return "auth_invalid"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d", e.Endpoint, e.StatusCode)
}

// RequestError wraps transport failures that happened before a status was received.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("marvin %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ClassifiedError is the user-facing outcome of a failed call.
// Message always starts with "Error: " and names one corrective action.
type ClassifiedError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (c ClassifiedError) Error() string {
	return c.Message
}

// Classify maps any failure to exactly one ErrorKind and its guidance text.
// It never panics; a nil error classifies as Unknown.
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Kind: KindUnknown, Message: "Error: Unexpected error occurred - no error details available"}
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return ClassifiedError{
			Kind:    KindAuthInvalid,
			Message: "Error: No Amazing Marvin API token was provided for this session. Get your token at " + TokenURL,
		}
	case errors.Is(err, ErrInvalidCredentials):
		return ClassifiedError{
			Kind:    KindAuthInvalid,
			Message: "Error: Invalid API token. Please check that your API token is correct. Get your token at " + TokenURL,
		}
	}

	if errors.Is(err, ErrResponseTooLarge) {
		return ClassifiedError{
			Kind:    KindUnknown,
			Message: "Error: Amazing Marvin returned more data than this server accepts. Please narrow the request, for example by date or by listing a single project with marvin_get_children.",
		}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	if isTimeout(err) {
		return ClassifiedError{
			Kind:    KindTimeout,
			Message: "Error: Request timed out. The Amazing Marvin API is taking too long to respond. Please try again.",
		}
	}
	if isConnectFailure(err) {
		return ClassifiedError{
			Kind:    KindTimeout,
			Message: "Error: Cannot connect to Amazing Marvin API. Please check your internet connection and try again.",
		}
	}
	if errors.Is(err, context.Canceled) {
		return ClassifiedError{
			Kind:    KindUnknown,
			Message: "Error: Request was cancelled before Amazing Marvin responded. Please try again.",
		}
	}

	return ClassifiedError{
		Kind:    KindUnknown,
		Message: "Error: Unexpected error occurred - " + err.Error(),
	}
}

func classifyStatus(code int) ClassifiedError {
	c := ClassifiedError{StatusCode: code}
	switch {
	case code == http.StatusUnauthorized:
		c.Kind = KindAuthInvalid
		c.Message = "Error: Invalid API token. Please check that your API token is correct. Get your token at " + TokenURL
	case code == http.StatusForbidden:
		c.Kind = KindAuthInvalid
		c.Message = "Error: Permission denied. This operation may require a full access token from " + TokenURL
	case code == http.StatusNotFound:
		c.Kind = KindNotFound
		c.Message = "Error: Resource not found. Please check that the ID is correct and the item still exists in Amazing Marvin."
	case code == http.StatusTooManyRequests:
		c.Kind = KindRateLimited
		c.Message = "Error: Rate limit exceeded. Please wait a moment before making more requests to the Amazing Marvin API."
	case code >= 500 && code <= 599:
		c.Kind = KindUpstreamUnavailable
		c.Message = "Error: Amazing Marvin server error. The service may be temporarily unavailable. Please try again in a few moments."
	default:
		c.Kind = KindUnknown
		c.Message = fmt.Sprintf("Error: API request failed with status %d. Please try again.", code)
	}
	return c
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// IsAlreadyInState reports whether err is the upstream's way of saying the
// item is already in the requested state (already done, no timer running).
func IsAlreadyInState(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		body := strings.ToLower(statusErr.Body)
		for _, hint := range []string{"already", "not running", "no timer", "not tracking"} {
			if strings.Contains(body, hint) {
				return true
			}
		}
	}
	return false
}
