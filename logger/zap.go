package logger

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "<redacted>"

// Field names whose values are never written, whatever their type.
var sensitiveFields = []string{"private_key", "secret", "password", "mnemonic"}

type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger builds a JSON production logger at level. Unknown levels
// fall back to info.
func NewZapLogger(level string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	log, err := cfg.Build()
	if err != nil {
		return NoopLogger{}
	}
	return &ZapLogger{log: log}
}

// NewZapLoggerFrom wraps an existing zap logger, e.g. one built on
// zaptest/observer.
func NewZapLoggerFrom(log *zap.Logger) Logger {
	return &ZapLogger{log: log}
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapLogger) Debug(msg string, fields map[string]any) {
	z.log.Debug(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Info(msg string, fields map[string]any) {
	z.log.Info(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields map[string]any) {
	z.log.Warn(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, fields map[string]any) {
	z.log.Error(msg, toZapFields(fields)...)
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.log.Sync()
}

func toZapFields(m map[string]any) []zap.Field {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(m))
	for _, k := range names {
		if isSensitive(k) {
			fields = append(fields, zap.String(k, redacted))
			continue
		}
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, s := range sensitiveFields {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
