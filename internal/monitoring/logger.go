// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared diagnostic logger. It writes text to stderr until
// redirected with SetOutput.
var Log = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutput redirects the logger. Passing nil discards all output.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	Log.SetOutput(w)
}

// SetLevel parses and applies a level name such as "debug" or "warn".
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	Log.SetLevel(lvl)
	return nil
}

// OpenLogFile points the logger at an append-only file and returns it so the
// caller can close it on exit.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(f)
	return f, nil
}
