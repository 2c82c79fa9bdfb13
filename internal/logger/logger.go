// Package logger configures the process-wide slog logger used by all
// callcore components.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

var (
	levelMu     sync.RWMutex
	globalLevel = slog.LevelDebug
)

// SetLevel sets the global log level
func SetLevel(levelStr string) {
	level := ParseLevel(levelStr)
	levelMu.Lock()
	defer levelMu.Unlock()
	globalLevel = level
}

// ParseLevel parses a string to an slog level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// handler writes formatted log lines to one or more outputs with global
// level filtering.
type handler struct {
	outs []io.Writer
	mu   sync.Mutex
}

// Handle implements slog.Handler
func (h *handler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	levelMu.RLock()
	if record.Level < globalLevel {
		levelMu.RUnlock()
		return nil
	}
	levelMu.RUnlock()

	timestamp := record.Time.Format("15:04:05")
	message := record.Message

	var attrs []string
	record.Attrs(func(a slog.Attr) bool {
		if a.Key != "time" && a.Key != "level" && a.Key != "msg" {
			attrs = append(attrs, a.Key+"="+a.Value.String())
		}
		return true
	})

	if len(attrs) > 0 {
		message = message + " " + strings.Join(attrs, " ")
	}

	line := "[" + timestamp + "] [" + strings.ToUpper(record.Level.String()) + "] " + message + "\n"
	for _, out := range h.outs {
		if out != nil {
			_, _ = out.Write([]byte(line))
		}
	}

	return nil
}

// WithAttrs implements slog.Handler
func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler
func (h *handler) WithGroup(name string) slog.Handler {
	return h
}

// Enabled implements slog.Handler
func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level >= globalLevel
}

// Init initializes the global logger with one or more output writers
func Init(outputs ...io.Writer) {
	logger := slog.New(&handler{outs: outputs})
	slog.SetDefault(logger)
}

// Convenience functions that use the default logger
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}
