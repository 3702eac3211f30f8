// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Config selects the level and output format.
type Config struct {
	Level      string
	Format     string // text | json
	TimeFormat string
	Output     io.Writer
}

// New returns a logger for cfg. Unknown levels fall back to info.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timeFormat})
	}
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	}
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", name)
}

// Validate reports whether level parses.
func Validate(level string) error {
	if _, err := logrus.ParseLevel(level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
