// Package logging builds the logrus logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level, format and destination.
type Config struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to os.Stderr so stdout stays free for command output.
	Output io.Writer
}

// New returns a configured logger.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", cfg.Format)
	}
	return l, nil
}

// Discard returns a logger that drops everything. Handy in tests and as the
// default for library callers that pass no logger.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
