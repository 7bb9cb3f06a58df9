// Package logging собирает zap-логгер по настройкам приложения.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConfig возвращает конфигурацию zap: без stacktrace, время в ISO8601.
func NewConfig(level, format string) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("parse log level: %w", err)
	}

	encodeLevel := zapcore.CapitalColorLevelEncoder
	switch format {
	case "", "console":
		format = "console"
	case "json":
		encodeLevel = zapcore.LowercaseLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q", format)
	}

	return zap.Config{
		Level:    zap.NewAtomicLevelAt(lvl),
		Encoding: format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}, nil
}

// New создаёт логгер с именем сервиса
func New(name, level, format string) (*zap.Logger, error) {
	cfg, err := NewConfig(level, format)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named(name), nil
}
