// Package logger provides structured logging for the enrichment engine.
//
// Built on log/slog with a tint console handler for local development and
// a plain JSON handler otherwise, the same split malbeclabs-doublezero's
// service entrypoints use (telemetry/flow-ingest/cmd/server/main.go's
// newLogger). The level lives in a slog.LevelVar so it can be changed at
// runtime without rebuilding the handler.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	// global is the package-level logger instance.
	global   *slog.Logger
	levelVar = new(slog.LevelVar)
	once     sync.Once
)

// Init initializes the global logger.
// level: debug, info, warn, error
// format: json or console
func Init(level, format string) error {
	var initErr error
	once.Do(func() {
		parsed, err := parseLevel(level)
		if err != nil {
			initErr = err
			return
		}
		levelVar.Set(parsed)

		var handler slog.Handler
		switch format {
		case "console":
			handler = tint.NewHandler(os.Stdout, &tint.Options{Level: levelVar})
		default:
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})
		}
		global = slog.New(handler)
	})
	return initErr
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("parse log level %q: unrecognized level", level)
	}
}

// SetLevel dynamically changes the log level (hot-reload support).
func SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	levelVar.Set(parsed)
	return nil
}

// GetLevel returns the current log level.
func GetLevel() slog.Level {
	return levelVar.Level()
}

// L returns the global logger. Panics if Init has not been called.
func L() *slog.Logger {
	if global == nil {
		panic("logger.Init() must be called before logger.L()")
	}
	return global
}

// Debug logs a message at DebugLevel. args is alternating key/value pairs.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs a message at InfoLevel. args is alternating key/value pairs.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs a message at WarnLevel. args is alternating key/value pairs.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs a message at ErrorLevel. args is alternating key/value pairs.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then calls os.Exit(1).
func Fatal(msg string, args ...any) {
	L().Error(msg, args...)
	os.Exit(1)
}

// With creates a child logger with additional fields.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// HTTPHandler returns the level var backing dynamic log level changes.
// Mount a small handler at /log/level over it for runtime hot-reload.
//
// Usage:
//
//	GET  /log/level          → returns current level
//	PUT  /log/level -d '{"level":"debug"}' → changes level
func HTTPHandler() *slog.LevelVar {
	return levelVar
}

// Sync is a no-op kept for symmetry with callers that defer it; the
// stdout-backed handlers used here need no explicit flush.
func Sync() error {
	return nil
}
