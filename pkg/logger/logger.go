// Package logger is the structured logging front end of the factor pipeline.
// It is backed by log/slog and reports the caller of each log call as its
// source.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// callerSkip drops runtime.Callers, emit and the level method.
const callerSkip = 3

// ComponentKey is the attribute holding the name given to Named.
const ComponentKey = "component"

// Logger is the logging interface used across the module.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	// Fatal logs at error level and exits the process.
	Fatal(ctx context.Context, msg string, fields ...Field)

	// Named scopes the logger to a component. Nested names are joined
	// with dots.
	Named(name string) Logger
	// With returns a logger that adds fields to every entry, e.g. a run id.
	With(fields ...Field) Logger
}

// Field is one structured attribute.
type Field = slog.Attr

func String(key, val string) Field                 { return slog.String(key, val) }
func Int(key string, val int) Field                { return slog.Int(key, val) }
func Bool(key string, val bool) Field              { return slog.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return slog.Duration(key, val) }
func Any(key string, val any) Field                { return slog.Any(key, val) }
func Error(err error) Field                        { return slog.Any("error", err) }

// Float64 renders NaN and infinities as strings. Missing factor values are
// NaN and the JSON handler cannot encode them as numbers.
func Float64(key string, val float64) Field {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return slog.String(key, strconv.FormatFloat(val, 'g', -1, 64))
	}
	return slog.Float64(key, val)
}

type slogLogger struct {
	base      *slog.Logger
	component string
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelError, msg, fields)
	os.Exit(1)
}

func (l *slogLogger) Named(name string) Logger {
	if l.component != "" {
		name = l.component + "." + name
	}
	return &slogLogger{base: l.base, component: name}
}

func (l *slogLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return &slogLogger{base: l.base.With(args...), component: l.component}
}

// emit builds the record itself so the source points at the caller of the
// level method rather than at this package.
func (l *slogLogger) emit(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if !l.base.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(callerSkip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	if l.component != "" {
		r.AddAttrs(slog.String(ComponentKey, l.component))
	}
	r.AddAttrs(fields...)
	_ = l.base.Handler().Handle(ctx, r)
}

// shortSource keeps the directory and file name of the source attribute.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}
	file := filepath.Join(filepath.Base(filepath.Dir(src.File)), filepath.Base(src.File))
	return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", file, src.Line))
}

var (
	global   Logger
	levelVar slog.LevelVar
)

// Option configures Init.
type Option func(*settings)

type settings struct {
	format string
	out    io.Writer
}

// WithFormat selects the handler: "text" (default) or "json".
func WithFormat(format string) Option {
	return func(s *settings) { s.format = strings.ToLower(strings.TrimSpace(format)) }
}

// WithWriter redirects log output. Defaults to stderr so stdout stays free
// for command output.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// Init installs the global logger at info level.
func Init(opts ...Option) error {
	s := settings{format: "text", out: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	levelVar.Set(slog.LevelInfo)
	handlerOpts := &slog.HandlerOptions{Level: &levelVar, AddSource: true, ReplaceAttr: shortSource}

	var h slog.Handler
	switch s.format {
	case "", "text":
		h = slog.NewTextHandler(s.out, handlerOpts)
	case "json":
		h = slog.NewJSONHandler(s.out, handlerOpts)
	default:
		return fmt.Errorf("unknown log format: %s", s.format)
	}
	global = &slogLogger{base: slog.New(h)}
	return nil
}

// Get returns the global logger. Init must have been called.
func Get() Logger {
	if global == nil {
		panic("logger not initialized: call logger.Init first")
	}
	return global
}

// Named is Get().Named(name).
func Named(name string) Logger {
	return Get().Named(name)
}

// SetLevel changes the level of the global logger.
func SetLevel(level slog.Level) { levelVar.Set(level) }

// SetLevelString parses debug, info, warn (or warning) and error, case
// insensitively, and sets the level.
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(slog.LevelDebug)
	case "", "info":
		SetLevel(slog.LevelInfo)
	case "warn", "warning":
		SetLevel(slog.LevelWarn)
	case "error":
		SetLevel(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
