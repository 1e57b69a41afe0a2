// Package logging wraps log/slog behind a small interface so callers never
// need to import log/slog directly, and so a nil Logger is always a valid,
// silent no-op.
package logging

import "log/slog"

// Logger is the structured logger contract shared by avro/registry and
// cmd/avroctl. A nil *Logger is valid and every method on it is a no-op.
type Logger struct {
	base *slog.Logger
}

// New wraps an existing *slog.Logger. Passing nil is valid and yields a
// no-op Logger.
func New(base *slog.Logger) *Logger {
	if base == nil {
		return nil
	}
	return &Logger{base: base}
}

// Default wraps slog.Default().
func Default() *Logger {
	return New(slog.Default())
}

func (l *Logger) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Error(msg, args...)
}

// With returns a Logger that always includes the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With(args...)}
}
