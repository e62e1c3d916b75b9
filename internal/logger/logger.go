// Package logger owns the process-wide slog logger: JSON on stderr, so a
// clustering run's structured log stream never interleaves with the run
// summaries and debug dumps other components write to stdout/files.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// Init builds the default logger once. The level comes from
// EVENTPULSE_LOG_LEVEL (debug|info|warn|error), defaulting to info.
func Init() {
	once.Do(func() {
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: levelFromEnv(),
		}))
		slog.SetDefault(defaultLogger)
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("EVENTPULSE_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the default logger, initializing it on first use.
func Get() *slog.Logger {
	Init()
	return defaultLogger
}

// WithRun returns a child logger carrying the run's date prefix, so every
// line a single clustering window emits can be grepped by run.
func WithRun(runPrefix string) *slog.Logger {
	return Get().With("run", runPrefix)
}

// Info logs at info level on the default logger.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs at warn level on the default logger.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs at error level, appending err as a structured field when set.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Get().Error(msg, args...)
}

// Debug logs at debug level on the default logger.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
