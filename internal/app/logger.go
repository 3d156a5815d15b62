package app

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Log formats accepted by newLogger. FormatAuto picks FormatPretty on a
// terminal and FormatText otherwise.
const (
	FormatAuto   = "auto"
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// LogFormats and LogLevels list the accepted values, for flag validation.
var (
	LogFormats = []string{FormatAuto, FormatText, FormatJSON, FormatPretty}
	LogLevels  = []string{"debug", "info", "warn", "error"}
)

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	switch resolveFormat(formatStr, outW) {
	case FormatJSON:
		handler = slog.NewJSONHandler(outW, handlerOpts)
	case FormatPretty:
		handler = tint.NewHandler(outW, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    runtime.GOOS == "windows",
		})
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

func resolveFormat(format string, w io.Writer) string {
	if format != FormatAuto && format != "" {
		return format
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		return FormatPretty
	}
	return FormatText
}
