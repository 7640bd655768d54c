package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// newSlogger builds the slog.Logger pgasync.Conn uses for protocol-level
// tracing, backed by a charmbracelet/log handler so its output matches the
// rest of the CLI's styling.
func newSlogger(level string, verbose bool) *slog.Logger {
	clog := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "pgasync",
	})

	switch level {
	case "debug":
		clog.SetLevel(log.DebugLevel)
	case "info":
		clog.SetLevel(log.InfoLevel)
	case "error":
		clog.SetLevel(log.ErrorLevel)
	default:
		clog.SetLevel(log.WarnLevel)
	}

	if verbose {
		clog.SetLevel(log.DebugLevel)
	}

	return slog.New(clog)
}
