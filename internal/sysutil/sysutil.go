// Package sysutil holds process-level helpers used by the command
// entrypoints: global logger setup and small value fallbacks.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level from a LOG_LEVEL value.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, accepting "warning"
// as an alias. Empty, unknown, trace and disabled values fall back to info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil || l < zerolog.DebugLevel || l > zerolog.PanicLevel {
		return zerolog.InfoLevel
	}
	return l
}

// SetupLogger points the global logger at w with the given level. pretty
// switches to the human-readable console format used in development.
func SetupLogger(w io.Writer, lvl string, pretty bool) {
	SetLogLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// FirstNonEmpty returns the first non-empty string from a variadic list.
// If all values are empty, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
