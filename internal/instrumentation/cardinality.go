package instrumentation

import "strings"

// Cardinality helpers keep metric label values to a small, fixed set.

// knownEndpoints are the upstream paths the server calls.
var knownEndpoints = map[string]bool{
	"/addTask":    true,
	"/todayItems": true,
	"/dueItems":   true,
	"/markDone":   true,
	"/categories": true,
	"/labels":     true,
	"/children":   true,
	"/track":      true,
}

// NormalizeEndpoint strips query strings and folds unknown paths into "other".
//
//	NormalizeEndpoint("/todayItems?date=2024-03-15") // "/todayItems"
//	NormalizeEndpoint("/items/abc123")               // "other"
func NormalizeEndpoint(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	if knownEndpoints[endpoint] {
		return endpoint
	}
	return "other"
}

// StatusClass reduces an HTTP status code to its class ("2xx", "4xx", ...).
// A zero code means the request never got a response.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return StatusError
	}
}
