// Package logging builds the zerolog logger used by the CLI.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config log level (debug, info, warn, error) to a zerolog
// level. Unknown or empty values map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup returns a console logger writing to out at the given level.
// Colors are disabled unless color is true.
func Setup(level string, out io.Writer, color bool) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !color,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}
