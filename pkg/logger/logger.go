// Package logger builds the zap logger shared by the binaries.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger (console when development is set) with ISO8601
// "timestamp" keys. An unparseable level keeps the config default (info, debug in development).
func New(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Must is New for process startup: on error it reports to stderr through a fallback
// logger instead of returning nil.
func Must(level string, development bool) *zap.Logger {
	logger, err := New(level, development)
	if err != nil {
		fallback := zap.NewExample()
		fallback.Error("falling back to example logger", zap.Error(err))
		return fallback
	}
	return logger
}
