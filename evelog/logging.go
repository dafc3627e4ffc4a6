// Package evelog provides the structured logger shared by every backend and
// pipeline stage in ralph-go.
//
// Output is split the same way across the whole codebase: error-level
// entries go to stderr, everything else to stdout, so container log
// collectors can treat the two streams differently without parsing
// log levels themselves.
package evelog

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus-formatted lines to stdout or stderr based on
// their level, inspecting the rendered bytes rather than the log entry.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logger. Backends should use Logger.WithField("backend", name)
// rather than constructing their own logrus.Logger.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(OutputSplitter{})
}

// WithBackend returns an entry tagged with the backend name, the convention
// used throughout the backend/ subpackages for status, list, read and write
// logging.
func WithBackend(name string) *logrus.Entry {
	return Logger.WithField("backend", name)
}
