// Package logging configures the process-wide structured logger, the way
// the teacher's CLI tooling does it with log/slog's JSON handler.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel maps the --log-level flag's string value to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Setup installs a JSON-handler slog.Logger as the process default,
// falling back to info level on an unparseable string.
func Setup(levelStr string) {
	lvl, err := ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
