// Package log is a thin facade over zap with the alternating key/value call
// style used throughout this codebase:
//
//	log.Info("transaction committed", "users", 3, "events", 12)
//	log.Error("write failed", err, "path", path)
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	level      = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger builds the global sugared logger. Production encoder config,
// console output to stderr, timestamps in ISO8601.
func initLogger() {
	loggerOnce.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg := zap.Config{
			Level:            level,
			Encoding:         "console",
			EncoderConfig:    encCfg,
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
		base, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// Last resort: a no-op logger keeps callers safe.
			base = zap.NewNop()
		}
		logger = base.Sugar()
	})
}

// SetDebug lowers the minimum level to DEBUG.
func SetDebug(enabled bool) {
	initLogger()
	if enabled {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

// Error logs msg with err prepended to the key/value pairs.
func Error(msg string, err error, kv ...any) {
	initLogger()
	extended := append([]any{"err", err}, kv...)
	logger.Errorw(msg, extended...)
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
