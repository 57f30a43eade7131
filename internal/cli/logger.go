package cli

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger writes leveled diagnostics to w (stderr in practice) so they never
// mix with command output. verbose forces debug level.
func NewLogger(w io.Writer, level string, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "unify",
		ReportTimestamp: verbose,
	})
}
