// Package logging provides structured logging utilities for marvin-mcp.
//
// It keeps attribute names consistent across the codebase and wraps the
// standard library's slog package.
//
// # Usage Patterns
//
//	logger := logging.WithTool(slog.Default(), "marvin_get_todays_tasks")
//	logger.Debug("calling upstream",
//	    logging.Endpoint("/todayItems"),
//	    logging.Session(creds.Fingerprint()))
//
// # Security Considerations
//
// API tokens are never logged. Sessions are identified by a short
// fingerprint of the token, and SanitizeToken reports only a length.
package logging
