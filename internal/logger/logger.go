// File: internal/logger/logger.go
// Package logger
// Author: momentics <momentics@gmail.com>
//
// Process-wide structured logger on top of log/slog.

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	once          sync.Once
	level         = new(slog.LevelVar)
)

// Options selects level, output format and destination.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer

	// LevelVar, when set, receives the parsed level and stays live so the
	// level can be changed after the logger is built.
	LevelVar *slog.LevelVar
}

// Init initializes the global logger from the environment.
// DEBUG=true enables debug level logging with source locations.
func Init() {
	once.Do(func() {
		name := "info"
		if os.Getenv("DEBUG") == "true" {
			name = "debug"
		}
		l, _ := New(Options{Level: name, LevelVar: level})
		set(l)
	})
}

// Configure replaces the global logger. Unlike Init it may be called more
// than once, the last call wins. The global level stays adjustable through
// SetLevel.
func Configure(o Options) error {
	o.LevelVar = level
	l, err := New(o)
	if err != nil {
		return err
	}
	once.Do(func() {})
	set(l)
	return nil
}

// New builds a logger without touching the global one.
func New(o Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	if o.LevelVar != nil {
		opts.Level = o.LevelVar
	}

	var h slog.Handler
	switch strings.ToLower(o.Format) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", o.Format)
	}
	if o.LevelVar != nil {
		o.LevelVar.Set(lvl)
	}
	return slog.New(h), nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetLevel changes the level of the global logger in place. Loggers derived
// with With keep following it.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// Level reports the current global level.
func Level() slog.Level { return level.Level() }

func set(l *slog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// L returns the global logger, initializing it on first use.
func L() *slog.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs at Info level.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs at Warn level.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs at Error level.
func Error(msg string, args ...any) { L().Error(msg, args...) }

// Fatal logs at Error level and then exits.
func Fatal(msg string, args ...any) {
	L().Error(msg, args...)
	os.Exit(1)
}

// With returns a new logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
