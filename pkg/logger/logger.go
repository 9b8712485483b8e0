package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var base = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Setup replaces the package logger. format is "json" or "text"; level is
// one of debug, info, warn, error.
func Setup(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	base = slog.New(handler)
	slog.SetDefault(base)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Info(msg string, args ...any) {
	base.Info(msg, args...)
}

func Error(msg string, args ...any) {
	base.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	base.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	base.Warn(msg, args...)
}

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	base.Error(msg, args...)
	os.Exit(1)
}

// With returns a child logger carrying the given attributes, e.g. an order id
// for every line of one reconciliation.
func With(args ...any) *slog.Logger {
	return base.With(args...)
}
