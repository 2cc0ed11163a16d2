// Package auditlog provides a structured, append-friendly log stream for
// integrity reports and rejection records — a separate concern from the
// operational logging in infrastructure/logging, and deliberately backed
// by a different library so the two never get mixed into one stream.
package auditlog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger scoped to the audit stream.
type Logger struct {
	*zap.Logger
}

// New builds an audit Logger at the given level ("debug", "info", "warn", "error").
func New(level string) *Logger {
	lvl := zapcore.InfoLevel
	_ = lvl.UnmarshalText([]byte(level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.MessageKey = "msg"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(os.Stdout),
		lvl,
	)
	return &Logger{Logger: zap.New(core).With(zap.String("stream", "audit"))}
}

// NewFromEnv builds an audit Logger using AUDIT_LOG_LEVEL, defaulting to info.
func NewFromEnv() *Logger {
	level := strings.TrimSpace(os.Getenv("AUDIT_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	return New(level)
}

// Tenant returns a child logger tagged with a tenant id.
func (l *Logger) Tenant(tenantID string) *zap.Logger {
	return l.With(zap.String("tenantId", tenantID))
}
