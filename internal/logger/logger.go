// Package logger wraps log/slog with console and rotating file output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelAlways is for lines that must be logged regardless of level, such as
// the seed of a batch that may need to be replayed.
const LevelAlways = slog.Level(12)

var current atomic.Pointer[slog.Logger]

// Initialize sets up the package logger with the provided configuration.
// Console output goes to stderr so command output on stdout stays clean.
func Initialize(config Config) {
	current.Store(New(config, os.Stderr))
}

// SetLogger replaces the package logger. nil disables logging.
func SetLogger(l *slog.Logger) {
	current.Store(l)
}

// New builds a logger for the configuration. Console output goes to console.
func New(config Config, console io.Writer) *slog.Logger {
	level := parseLogLevel(config.Level)

	var handlers []slog.Handler
	if config.Console() {
		handlers = append(handlers, newHandler(console, config.ConsoleFormat, level))
	}
	if config.FileEnabled {
		file := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.FileMaxSizeMB,
			MaxBackups: config.FileMaxBackups,
			MaxAge:     config.FileMaxAgeDays,
		}
		handlers = append(handlers, newHandler(file, config.FileFormat, level))
	}

	switch len(handlers) {
	case 0:
		return slog.New(newHandler(console, "text", level))
	case 1:
		return slog.New(handlers[0])
	default:
		return slog.New(newMultiHandler(handlers...))
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// replaceLevel renders LevelAlways as "ALWAYS" instead of "ERROR+4".
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelAlways {
			a.Value = slog.StringValue("ALWAYS")
		}
	}
	return a
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the package logger, or a discarding logger before Initialize.
func Logger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if l := current.Load(); l != nil {
		l.Debug(msg, args...)
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...any) {
	Debug(fmt.Sprintf(format, args...))
}

// Info logs an info message
func Info(msg string, args ...any) {
	if l := current.Load(); l != nil {
		l.Info(msg, args...)
	}
}

// Infof logs a formatted info message
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Warning logs a warning message
func Warning(msg string, args ...any) {
	if l := current.Load(); l != nil {
		l.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if l := current.Load(); l != nil {
		l.Error(msg, args...)
	}
}

// Always logs a message that bypasses log level filtering
func Always(msg string, args ...any) {
	if l := current.Load(); l != nil {
		l.Log(context.Background(), LevelAlways, msg, args...)
	}
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return newMultiHandler(handlers...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return newMultiHandler(handlers...)
}
