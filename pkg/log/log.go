// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used throughout the settlement platform.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

// New creates a production logger at info level.
func New() Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a logger with the given minimum level
// ("debug", "info", "warn", "error", "fatal").
func NewWithLevel(level string) Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"

	z, err := cfg.Build()
	if err != nil {
		return NoOp()
	}
	return &zapLogger{z: z}
}

// NewNamed creates a logger with the given component name bound to every entry.
func NewNamed(name string) Logger {
	l := New()
	return l.With(zap.String("component", name))
}

// NoOp returns a logger that discards everything — used in tests.
func NoOp() Logger {
	return &zapLogger{z: zap.NewNop()}
}

// NoLog is a shared no-op logger instance.
var NoLog = NoOp()

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }
func (l *zapLogger) Sync() error                           { return l.z.Sync() }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

// Field helpers re-exported for call sites that don't want to import zap
// directly.
func String(key, val string) zap.Field        { return zap.String(key, val) }
func Int(key string, val int) zap.Field       { return zap.Int(key, val) }
func Err(err error) zap.Field                 { return zap.Error(err) }
func Duration(key string, d time.Duration) zap.Field { return zap.Duration(key, d) }
