// Package log wraps log/slog so callers log typed slog.Attr values through
// slog.LogAttrs. The package-level functions use slog.Default; Logger binds
// the same helpers to an injected *slog.Logger.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Logger logs through a fixed *slog.Logger.
type Logger struct {
	l *slog.Logger
}

// From returns a Logger for l, or for slog.Default when l is nil.
func From(l *slog.Logger) Logger {
	return Logger{l: l}
}

func (lg Logger) logger() *slog.Logger {
	if lg.l == nil {
		return slog.Default()
	}
	return lg.l
}

// Debug logs msg and attrs with the given context at the debug level.
func (lg Logger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, lg.logger(), slog.LevelDebug, msg, attrs...)
}

// Info logs msg and attrs with the given context at the info level.
func (lg Logger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, lg.logger(), slog.LevelInfo, msg, attrs...)
}

// Warn logs msg and attrs with the given context at the warning level.
func (lg Logger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, lg.logger(), slog.LevelWarn, msg, attrs...)
}

// Error logs msg and attrs with the given context at the error level.
func (lg Logger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, lg.logger(), slog.LevelError, msg, attrs...)
}

// Debug logs msg and attrs with the given context at the debug level.
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.Default(), slog.LevelDebug, msg, attrs...)
}

// Info logs msg and attrs with the given context at the info level.
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.Default(), slog.LevelInfo, msg, attrs...)
}

// Warn logs msg and attrs with the given context at the warning level.
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.Default(), slog.LevelWarn, msg, attrs...)
}

// Error logs msg and attrs with the given context at the error level.
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.Default(), slog.LevelError, msg, attrs...)
}

// logAttrs must only be called from the exported helpers of this package:
// the caller reported in the record is two frames above it.
func logAttrs(ctx context.Context, l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, its parent in log pkg]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}

// New returns a text logger writing to w at the named level
// (debug, info, warn or error).
func New(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
