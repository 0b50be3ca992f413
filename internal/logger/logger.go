// Package logger builds the connector's structured JSON logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Level = slog.Level

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var programLevel = new(slog.LevelVar)

// New returns a JSON logger writing to w at the shared program level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       programLevel,
		ReplaceAttr: replaceLevel,
	}))
}

// Setup configures the default logger from LOG_LEVEL (default INFO) and returns it.
// An invalid LOG_LEVEL falls back to INFO and is reported on the returned logger.
func Setup(w io.Writer) *slog.Logger {
	raw := os.Getenv("LOG_LEVEL")
	level, err := ParseLevel(raw)
	SetLevel(level)

	l := New(w)
	slog.SetDefault(l)
	if raw != "" && err != nil {
		l.Warn("invalid LOG_LEVEL", "error", err.Error())
	}
	return l
}

// SetLevel changes the minimum level of every logger built by this package.
func SetLevel(level Level) {
	programLevel.Set(level)
}

// ParseLevel converts a level name to a Level. Empty means INFO.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", s)
	}
}

// replaceLevel prints the custom trace level by name instead of "DEBUG-4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
