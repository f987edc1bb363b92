// Package logger provides opinionated logging capabilities for palaver
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to stderr, keeping stdout free
// for response text.
func NewLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stderr), debug, true)
}

// NewFileLogger returns a logger appending to the file at path. The terminal
// UI owns the screen, so it logs here instead of to stderr.
func NewFileLogger(path string, debug bool) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return newLogger(zapcore.AddSync(f), debug, false), f.Close, nil
}

func newLogger(out zapcore.WriteSyncer, debug, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		out,
		level,
	)

	return zap.New(core, zap.AddCaller())
}
