// Package logging provides the leveled, structured logger used across
// coresim. It is backed by log/slog rather than a bare *log.Logger:
// every line carries a stable "component" attribute plus whatever
// key/value context a caller attaches with With, instead of a single
// opaque formatted string.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level is a logging severity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Logger provides leveled, structured logging to stdout.
type Logger struct {
	level Level
	inner *slog.Logger
}

// New creates a Logger at the given level, tagging every line with a
// "component" attribute set to name.
func New(level Level, name string) *Logger {
	return newLogger(level, name, os.Stdout)
}

// newLogger builds a Logger writing to w, split out from New so tests
// can assert on captured output instead of stdout.
func newLogger(level Level, name string, w io.Writer) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{
		level: level,
		inner: slog.New(handler).With("component", name),
	}
}

// SetLevel adjusts the logger's current level.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.level = level
}

// With returns a derived logger that attaches the given key/value pairs
// to every message it emits, without mutating l. Use it to carry
// per-invocation context (a run identifier, a PE id) instead of
// repeating it in every format string.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{level: l.level, inner: l.inner.With(args...)}
}

func (l *Logger) logf(target Level, format string, args ...any) {
	if l == nil || target > l.level {
		return
	}
	l.inner.Log(context.Background(), target.slogLevel(), fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs a warn-level message.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// AsHook adapts the logger into the func(string) hook shape consumed by
// coherence.WithLog / coherence.WithBusLog, so a cache or interconnect
// given this hook reports transitions through the component's normal
// structured logger at debug level. A cache or interconnect built
// without a log callback logs nothing.
func (l *Logger) AsHook() func(string) {
	return func(s string) { l.Debugf("%s", s) }
}

var defaultLogger = New(LevelInfo, "coresim")

// Default returns the package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultLogger = l
}
