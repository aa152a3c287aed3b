// Package log provides the structured logging used by package actor and
// the keanu command, wrapping zerolog.
//
// Of the library packages, only actor logs, and only for its own actor
// lifecycle and crash events; eventbus and pool do not use this package.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is a filterable log severity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// levelTable maps the string Level this package exposes to zerolog's own
// enum, so adding a level means adding one table entry rather than another
// switch arm.
var levelTable = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config configures the global logger created by Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Logger is the package-level logger. Disabled by default so embedding the
// library doesn't make it chatty until a binary calls Init.
var Logger = zerolog.Nop()

// Init initializes the global logger from cfg. Unknown levels fall back to
// InfoLevel.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(resolveLevel(cfg.Level))
	Logger = zerolog.New(writerFor(cfg)).With().Timestamp().Logger()
}

func resolveLevel(l Level) zerolog.Level {
	if zl, ok := levelTable[l]; ok {
		return zl
	}
	return zerolog.InfoLevel
}

// writerFor picks the console or JSON encoding for cfg, defaulting the
// destination to stdout when Output is unset.
func writerFor(cfg Config) io.Writer {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.JSONOutput {
		return output
	}
	return zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
}

// WithComponent returns a child logger tagging every record with component.
// Every call site in this module builds structured events off of it
// (e.g. logger.Error().Err(err).Str(...).Msg(...)) rather than logging bare
// strings, so no package-level Info/Debug/Warn/Error helpers are provided
// here — they would have no caller and would invite unstructured logging
// the rest of the module deliberately avoids.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
