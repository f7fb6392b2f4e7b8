package interp

import (
	"fmt"
	"io"
)

// Reporter carries the human-readable execution trace (start/complete
// banners, dispatch counts, the final scope dump).
type Reporter interface {
	Printf(format string, args ...interface{})
}

// SilentReporter swallows all trace output.
type SilentReporter struct{}

func (r *SilentReporter) Printf(format string, args ...interface{}) {}

// ColorReporter writes the trace to a writer, typically stderr.
type ColorReporter struct {
	Writer io.Writer
}

func (r *ColorReporter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(r.Writer, format, args...)
}
