// Package logging builds the structured logger shared by every component.
//
// Usage:
//
//	log := logging.New("movienight", "info")
//	log.WithField("movie_id", id).Info("enriched")
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger writing JSON to stdout.  Unknown or empty
// levels fall back to info.  The service field is embedded in every line.
func New(service, level string) *logrus.Entry {
	return NewWithWriter(os.Stdout, service, level)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, service, level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// Discard returns a logger that drops everything.  Tests use it.
func Discard() *logrus.Entry {
	return NewWithWriter(io.Discard, "test", "panic")
}
