// Package ui provides terminal output helpers and styling for aitracker.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// InitLogger initializes the charm logger with default settings.
func InitLogger() {
	SetLogOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetReportCaller(false)
	log.SetReportTimestamp(false)
}

// SetLogOutput redirects log output. Logs never go to stdout, which carries
// command results and the MCP protocol.
func SetLogOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetDebug enables debug logging.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
