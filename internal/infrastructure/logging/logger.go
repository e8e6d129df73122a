package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/config"
)

// Logger wraps slog.Logger with engine-wide defaults: every record
// carries service and version attributes, and the handler format and
// level come from config. The graph, control and bridge packages each
// declare a small Logger interface; this type satisfies all of them.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from config. Format is "json" (default) or
// "text"; output is "stdout" (default) or "stderr".
func New(cfg config.LoggingConfig, version string) *Logger {
	output := os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "pipegraph"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
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

// With returns a child logger carrying extra default attributes,
// typically a component tag:
//
//	mirrorLog := log.With("component", "mirror")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before config is loaded: JSON
// to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
