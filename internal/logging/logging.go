// Package logging builds the logrus loggers used by the verifier and the CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to stderr, so that report output on
// stdout stays clean. The level comes from LOG_LEVEL (trace, debug, info,
// warn, error) or DEBUG; info is the default.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableQuote:    true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(LevelFromEnv())
	return logger
}

// LevelFromEnv resolves the log level from the environment.
func LevelFromEnv() logrus.Level {
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); err == nil {
		return lvl
	}
	if os.Getenv("DEBUG") != "" {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// NewNop returns a logger that discards everything.
func NewNop() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
