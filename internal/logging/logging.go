// logging.go — logrus logger construction shared by every package.
// Components log through a *logrus.Entry tagged with a "component" field.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Options selects level, format and destination of the root logger.
type Options struct {
	Level  string    // trace|debug|info|warn|error (default info)
	Format string    // text|json (default text)
	Output io.Writer // default os.Stderr
}

// New builds a root logger. Unknown levels are rejected so config errors surface early.
func New(opts Options) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}

	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format must be text or json, got %q", opts.Format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything. Used when callers pass no logger.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component returns an entry tagged with the component name.
// A nil logger yields a discarding entry so packages never nil-check.
func Component(logger *log.Logger, name string) *log.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}
