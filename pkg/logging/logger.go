// Package logging wires the shared ectologger interface to a zap sink.
package logging

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Every log entry produced through the
// ectologger interface is forwarded to zap as a structured record.
func New(appName string, level string, pretty bool) (ectologger.Logger, func()) {
	zapLogger := newZapLogger(level, pretty)
	sink := zapLogger.With(zap.String("app", appName))

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		sink.Info("log", zap.Any("entry", msg))
	})

	flush := func() {
		_ = zapLogger.Sync()
	}
	return logger, flush
}

func newZapLogger(level string, pretty bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch level {
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
