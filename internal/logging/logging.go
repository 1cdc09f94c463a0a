// Package logging wires the EVREMAP_LOG environment variable to a
// charmbracelet/log logger, the structured logging library the rest of
// this module reaches for.
package logging

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New builds a logger whose level is taken from the EVREMAP_LOG
// environment variable (debug, info, warn, error; default info),
// falling back silently to info on an unrecognized value.
func New() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(levelFromEnv())
	return logger
}

func levelFromEnv() log.Level {
	switch strings.ToLower(os.Getenv("EVREMAP_LOG")) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
