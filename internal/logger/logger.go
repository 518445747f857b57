// Package logger wraps zap initialization behind a small struct so
// callers get a no-op logger until Init succeeds.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger carries the shared zap instance.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op zap instance.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the no-op instance with a real one at the given level.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = z
	return nil
}
