package debug

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewCLILogger returns the logger used for command output on stderr
func NewCLILogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "pitch-velocity",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
