// Package logging configures the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog logger and returns a component-scoped
// logger for the caller. Console output is used everywhere; it's readable
// in dev and still machine-parseable enough for the local runner setups
// this binary targets.
func Init(component, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	root := zerolog.New(cw).Level(parseLevel(level)).With().Timestamp().Str("component", component).Logger()
	return root
}

// For derives a child logger for another component from an existing root,
// without re-parsing the level.
func For(root zerolog.Logger, component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
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
