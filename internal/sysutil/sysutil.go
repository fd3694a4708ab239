// Package sysutil holds small process-level helpers shared by the CLI
// commands: global logger setup and flag/config fallbacks.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a level name to a zerolog level. Matching is
// case-insensitive; "warning" is accepted for warn and anything unknown
// falls back to info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel configures the global zerolog level.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// SetupLogging points the global logger at stderr, as JSON or through a
// human-readable console writer, and applies the level. stdout is kept free
// for command output.
func SetupLogging(level string, pretty bool) {
	SetupLoggingTo(os.Stderr, level, pretty)
}

// SetupLoggingTo is SetupLogging with an explicit sink.
func SetupLoggingTo(w io.Writer, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	SetLogLevel(level)
}

// FirstNonEmpty returns the first non-blank value, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
