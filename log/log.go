// Package log provides logrus loggers for streams.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv is the environment variable which enables debug level.
const DebugEnv = "AUGMENT_DEBUG"

var debug bool

// Logger is a global interface for augment loggers
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv(DebugEnv))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetDebug overrides debug level of loggers returned by GetLogger.
func SetDebug(v bool) {
	debug = v
}

// WithStream returns a logger entry with stream fields attached.
func WithStream(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"stream": name,
	})
}
