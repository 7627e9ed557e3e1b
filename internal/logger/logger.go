package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// L is the process-wide logger. Init must run before first use.
var L zerolog.Logger

// Init configures the global logger. JSON output is meant for scheduled
// runs; the console writer is for interactive use.
func Init(level string, jsonOut bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if jsonOut {
		L = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		L = zerolog.New(out).With().Timestamp().Logger()
	}

	SetLevel(level)
}

// SetLevel adjusts the global log level, defaulting to info on unknown input.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// WithRun returns a logger tagged with the batch run id.
func WithRun(runID string) zerolog.Logger {
	return L.With().Str("run_id", runID).Logger()
}

// WithAccount returns a logger tagged with an account id.
func WithAccount(accountID string) zerolog.Logger {
	return L.With().Str("account", accountID).Logger()
}
