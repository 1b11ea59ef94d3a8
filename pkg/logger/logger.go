// Package logger builds the structured logger shared by the server and
// the flow runner. Components receive child loggers explicitly; nothing
// reads a package-level instance.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures logger construction.
type Options struct {
	Level   string // trace, debug, info, warn, error (default info)
	Console bool   // human-readable console output instead of JSON
	Output  io.Writer
}

// New creates the root logger.
func New(opts Options) zerolog.Logger {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(w).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
