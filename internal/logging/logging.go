package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. format is "text" or "json".
func New(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// Component tags log lines with the emitting component.
func Component(logger logrus.FieldLogger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard returns an entry that drops everything, for tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logrus.NewEntry(logger)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
