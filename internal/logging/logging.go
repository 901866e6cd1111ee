// Package logging builds the structured loggers handed to the harvesting
// components.
package logging

import (
	"fmt"
	"strings"

	"gopkg.in/src-d/go-log.v1"
)

const (
	DefaultLevel  = "info"
	DefaultFormat = "text"
)

var validLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warning": {},
	"error":   {},
}

// New returns a logger writing at the given level and format ("text" or "json").
func New(level, format string) (log.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLevel
	}
	if _, ok := validLevels[level]; !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if format == "" {
		format = DefaultFormat
	}

	log.DefaultFactory = &log.LoggerFactory{
		Level:  level,
		Format: format,
	}
	logger, err := log.DefaultFactory.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log.DefaultLogger = logger
	return logger, nil
}

// Nop returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Nop() log.Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) New(log.Fields) log.Logger { return n }
func (n nopLogger) With(log.Fields) log.Logger { return n }
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Errorf(error, string, ...interface{}) {}
