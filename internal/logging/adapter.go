package logging

import (
	"log/slog"
)

// Logger is the small leveled logging surface used by HTTP infrastructure
// such as the rate limiter. Arguments are slog key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// SlogAdapter implements Logger on top of an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger. A nil logger means slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Component returns a Logger tagged with component=name.
func Component(logger *slog.Logger, name string) Logger {
	return NewSlogAdapter(logger).With("component", name)
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }

func (a *SlogAdapter) Info(msg string, args ...any) { a.logger.Info(msg, args...) }

func (a *SlogAdapter) Warn(msg string, args ...any) { a.logger.Warn(msg, args...) }

func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// With returns an adapter that adds args to every record.
func (a *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// Logger returns the wrapped slog.Logger.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}
