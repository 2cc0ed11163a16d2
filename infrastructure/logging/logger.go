// Package logging provides structured operational logging for the engine.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with a fixed component field.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the given component at the given level/format.
// format is either "json" or "text".
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv builds a Logger using LOG_LEVEL/LOG_FORMAT, defaulting to
// info/json when unset.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// Tenant returns an entry pre-populated with the tenant id, the
// scope nearly every coordinator/store log line is emitted at.
func (l *Logger) Tenant(tenantID string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"component": l.component, "tenantId": tenantID})
}

// WithComponent returns an entry tagged with the logger's component.
func (l *Logger) WithComponent() *logrus.Entry {
	return l.WithField("component", l.component)
}
