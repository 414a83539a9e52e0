// Package resources provides read-only MCP resources that help clients use
// the Amazing Marvin tools well: the title shorthand reference and the
// server's response and input limits.
//
// Resources make no upstream calls and need no credentials.
package resources
