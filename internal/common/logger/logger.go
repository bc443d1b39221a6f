// internal/common/logger/logger.go
package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the structured logging surface shared by the wizard components,
// the HTTP API and the job workers.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	With(fields map[string]interface{}) Logger
}

// New builds a zap logger. format "json" selects the production encoder,
// anything else the human readable console encoder.
func New(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

type zapWrapper struct {
	l *zap.Logger
	// base is l without its component field; nil until ForComponent scopes it.
	base *zap.Logger
}

func (z *zapWrapper) Debug(msg string, fields map[string]interface{}) {
	z.l.Debug(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Info(msg string, fields map[string]interface{}) {
	z.l.Info(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Warn(msg string, fields map[string]interface{}) {
	z.l.Warn(msg, toZapFields(fields)...)
}

func (z *zapWrapper) Error(msg string, fields map[string]interface{}) {
	z.l.Error(msg, toZapFields(fields)...)
}

func (z *zapWrapper) WithFields(fields map[string]interface{}) Logger {
	return z.with(toZapFields(fields)...)
}

func (z *zapWrapper) WithError(err error) Logger {
	return z.with(zap.Error(err))
}

func (z *zapWrapper) with(fields ...zap.Field) *zapWrapper {
	w := &zapWrapper{l: z.l.With(fields...)}
	if z.base != nil {
		w.base = z.base.With(fields...)
	}
	return w
}

// With is an alias for WithFields.
func (z *zapWrapper) With(fields map[string]interface{}) Logger {
	return z.WithFields(fields)
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}

// NewStructured returns a Logger built from level and format strings.
func NewStructured(levelStr, format string) Logger {
	return &zapWrapper{l: New(levelStr, format)}
}

// NewZapAdapter wraps an existing zap logger.
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapWrapper{l: l}
}

// NewTestLogger writes through testing.TB so output shows up with -v.
func NewTestLogger(t testing.TB) Logger {
	return &zapWrapper{l: zaptest.NewLogger(t)}
}

// NewNoOpLogger discards everything.
func NewNoOpLogger() Logger {
	return &zapWrapper{l: zap.NewNop()}
}

// ForComponent scopes a logger to one wizard component. Scoping an already
// scoped logger replaces the component rather than adding a second key.
func ForComponent(l Logger, component string) Logger {
	if l == nil {
		l = NewNoOpLogger()
	}
	z, ok := l.(*zapWrapper)
	if !ok {
		return l.WithFields(map[string]interface{}{"component": component})
	}
	base := z.l
	if z.base != nil {
		base = z.base
	}
	return &zapWrapper{l: base.With(zap.String("component", component)), base: base}
}
