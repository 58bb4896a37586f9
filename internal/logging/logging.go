package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var once sync.Once

// Setup installs the process-wide slog handler. Level is one of
// debug/info/warn/error, format is text or json. Repeated calls are no-ops.
func Setup(level, format string) {
	once.Do(func() {
		opts := &slog.HandlerOptions{Level: parseLevel(level)}

		var handler slog.Handler
		if strings.EqualFold(format, "json") {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}

		slog.SetDefault(slog.New(handler))
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
