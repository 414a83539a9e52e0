// Package common provides shared utilities for MCP tool implementations:
// the instrumentation wrapper, error results, and per-call outcome tracking.
package common
