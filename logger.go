package qharness

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger builds the structured logger shared by the runner, the pool and
// the CLI.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfiguration, level)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "qharness",
		Level:           lvl,
	})
	return logger, nil
}
